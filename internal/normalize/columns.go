// Package normalize 把任意大小写/标点的外部表头映射到固定内部模式。
// 该步骤只做分类，从不失败：未知列静默丢弃，缺失列由下游补空，
// 避免供应商多带几列就阻塞导入。
package normalize

import (
	"strings"

	"oee-ingestor/internal/domain"
)

// headerReplacer 清洗规则：空格、斜杠、连字符换下划线，点和括号删除
var headerReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	"-", "_",
	".", "",
	"(", "",
	")", "",
)

// synonyms 清洗后的别名 → 规范列名。
// ERP 导出里实际观察到的各种拼法（含源系统自己的拼写错误 rejection_reson）。
var synonyms = map[string]string{
	"rejection_reson":   "rejection_reason",
	"rejectionreason":   "rejection_reason",
	"re_work_qty":       "rework_qty",
	"reworkqty":         "rework_qty",
	"re_work_reason":    "rework_reason",
	"reworkreason":      "rework_reason",
	"currentct":         "current_c_t",
	"actualruntime":     "actual_run_time",
	"losstime_shouldbe": "loss_time_should_be",
	"reasontimehm":      "reason_time_hm",
	"losstimeremark":    "loss_time_remark",
	"operatorname":      "operator_name",
}

// CleanHeader 表头清洗：小写、trim、标点归一
func CleanHeader(raw string) string {
	return headerReplacer.Replace(strings.ToLower(strings.TrimSpace(raw)))
}

// Resolution 一次表头解析的结果
type Resolution struct {
	// Columns 输入列下标 → 规范列名（只含成功映射的列）
	Columns map[int]string
	// Missing 模式期望但输入缺失的规范列（下游补空）
	Missing []string
	// Extra 映射不到任何规范列的输入列，按清洗后的名字记录（丢弃）
	Extra []string
}

// Resolve 解析原始表头行。清洗 → 查别名表 → 对照静态字段表分类。
// 同一规范列出现多次时首列生效，其余归入 Extra。
func Resolve(headers []string) Resolution {
	known := domain.InputFieldSet()
	res := Resolution{Columns: make(map[int]string, len(headers))}
	seen := make(map[string]struct{}, len(headers))

	for i, h := range headers {
		cleaned := CleanHeader(h)
		canonical := cleaned
		if mapped, ok := synonyms[cleaned]; ok {
			canonical = mapped
		}
		if _, ok := known[canonical]; !ok {
			res.Extra = append(res.Extra, cleaned)
			continue
		}
		if _, dup := seen[canonical]; dup {
			res.Extra = append(res.Extra, cleaned)
			continue
		}
		seen[canonical] = struct{}{}
		res.Columns[i] = canonical
	}

	for _, f := range domain.InputFields {
		if _, ok := seen[f.Name]; !ok {
			res.Missing = append(res.Missing, f.Name)
		}
	}
	return res
}
