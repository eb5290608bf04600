package domain

// FieldKind 字段的语义类型，决定物化阶段使用哪种清洗/转换规则
type FieldKind int

const (
	FieldText      FieldKind = iota // 自由文本：trim + 空值标记折叠
	FieldTimeOfDay                  // HH:MM[:SS] 文本，去掉数值读入产生的 ".0" 尾巴
	FieldSeconds                    // 时长 → 非负整数秒
	FieldInt                        // 可空整数，小数向下取整并告警
	FieldFloat                      // 非负浮点，缺省 0
	FieldDate                       // 日在前日期 → 规范 DD-MM-YYYY
)

// FieldSpec 静态字段表的一项：规范列名 + 转换规则
type FieldSpec struct {
	Name string
	Kind FieldKind
}

// InputFields 是 CSV/XLSX 侧期望的全部规范列（不含代理主键与计算列）。
// 列顺序即插入顺序。归一化器与物化器都只查这张表，不做任何运行时反射。
var InputFields = []FieldSpec{
	{Name: "posting_date", Kind: FieldDate},
	{Name: "document_no", Kind: FieldText},
	{Name: "order_no", Kind: FieldText},
	{Name: "item_no", Kind: FieldText},
	{Name: "operation_no", Kind: FieldInt},
	{Name: "operation_description", Kind: FieldText},
	{Name: "order_line_no", Kind: FieldInt},
	{Name: "type", Kind: FieldText},
	{Name: "machine_no", Kind: FieldText},
	{Name: "current_c_t", Kind: FieldFloat},
	{Name: "output_quantity", Kind: FieldInt},
	{Name: "rejection_qty", Kind: FieldInt},
	{Name: "rejection_reason", Kind: FieldText},
	{Name: "rework_qty", Kind: FieldInt},
	{Name: "rework_reason", Kind: FieldText},
	{Name: "work_shift_code", Kind: FieldText},
	{Name: "start_time", Kind: FieldTimeOfDay},
	{Name: "end_time", Kind: FieldTimeOfDay},
	{Name: "plan_time", Kind: FieldSeconds},
	{Name: "actual_run_time", Kind: FieldSeconds},
	{Name: "loss_time", Kind: FieldSeconds},
	{Name: "remarks", Kind: FieldText},
	{Name: "operator_name", Kind: FieldText},
	{Name: "loss_time_should_be", Kind: FieldSeconds},
	{Name: "oee", Kind: FieldText},
	{Name: "reason_code", Kind: FieldText},
	{Name: "reason_time_hm", Kind: FieldSeconds},
	{Name: "loss_time_remark", Kind: FieldText},
}

// DerivedFields 导入时计算、禁止由输入提供的列
var DerivedFields = []string{
	"availability",
	"quality_rate",
	"performance",
	"oee_new",
	"shift_type",
}

// InputFieldSet 规范输入列名集合
func InputFieldSet() map[string]struct{} {
	set := make(map[string]struct{}, len(InputFields))
	for _, f := range InputFields {
		set[f.Name] = struct{}{}
	}
	return set
}
