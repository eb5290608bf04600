// Package metrics 实现四项标准制造效率指标。
// 全部为纯函数，输入已经过 coerce 清洗，输出单位为百分比。
package metrics

import "oee-ingestor/internal/domain"

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Availability 可用率 = (计划时间 - 损失时间) / 计划时间 × 100。
// 计划时间非正时无法度量，返回 0；损失超过计划时可用时间按 0 计，不出现负值。
func Availability(planSeconds, lossSeconds float64) float64 {
	if planSeconds <= 0 {
		return 0.0
	}
	available := planSeconds - lossSeconds
	if available < 0 {
		available = 0
	}
	return clamp(available/planSeconds*100, 0, 100)
}

// QualityRate 合格率 = (产出 - 不良) / 产出 × 100。
// 零产出且零不良视为 100（策略选择：没干活不算质量问题）；
// 不良数量封顶到产出数量，不可能拒收超过产出。
func QualityRate(outputQty, rejectQty float64) float64 {
	if outputQty <= 0 {
		if rejectQty > 0 {
			return 0.0
		}
		return 100.0
	}
	if rejectQty > outputQty {
		rejectQty = outputQty
	}
	return clamp((outputQty-rejectQty)/outputQty*100, 0, 100)
}

// Performance 性能率 = 产出 × 理想节拍 / 实际运行时间 × 100。
// 故意不封顶：机台跑得比额定节拍快时性能率合法地超过 100，
// 下游的 OEE 异常报表正依赖这一点，不得截断。
func Performance(outputQty, idealCycleSeconds, actualRunSeconds float64) float64 {
	if actualRunSeconds <= 0 || idealCycleSeconds <= 0 || outputQty <= 0 {
		return 0.0
	}
	p := outputQty * idealCycleSeconds / actualRunSeconds * 100
	if p < 0 {
		return 0.0
	}
	return p
}

// OEE 综合设备效率 = 可用率 × 性能率 × 合格率（按 0-1 比率相乘后还原为百分比）。
// 可用率、合格率比率截断到 [0,1]，性能率只保证非负，结果可超过 100。
func OEE(availability, performance, qualityRate float64) float64 {
	avail := clamp(availability/100, 0, 1)
	qual := clamp(qualityRate/100, 0, 1)
	perf := performance / 100
	if perf < 0 {
		perf = 0
	}
	oee := avail * perf * qual * 100
	if oee < 0 {
		return 0.0
	}
	return oee
}

// ShiftType 实际运行时间大于 0 判为 Active，否则 Idle
func ShiftType(actualRunSeconds float64) string {
	if actualRunSeconds > 0 {
		return domain.ShiftActive
	}
	return domain.ShiftIdle
}
