package domain

// ProductionRecord 班次生产记录领域模型
// 对应 production_records_grd 表，一行 = 一条 (机台, 班次, 工序, 日期) 生产事件。
// 记录在单个文件导入事务中创建一次，之后不再修改（修正以新行形式写入）。
type ProductionRecord struct {
	ID int64 `json:"id"`

	// 标识/上下文字段（均允许为空）
	PostingDate          string `json:"posting_date"` // 规范格式 DD-MM-YYYY，解析失败为空串
	DocumentNo           string `json:"document_no"`
	OrderNo              string `json:"order_no"`
	ItemNo               string `json:"item_no"`
	OperationNo          *int64 `json:"operation_no"`
	OperationDescription string `json:"operation_description"`
	OrderLineNo          *int64 `json:"order_line_no"`
	Type                 string `json:"type"`
	MachineNo            string `json:"machine_no"`
	WorkShiftCode        string `json:"work_shift_code"`
	OperatorName         string `json:"operator_name"`

	// 时间输入（秒字段为非负整数，缺省 0）
	StartTime        string `json:"start_time"` // HH:MM 或 HH:MM:SS 文本
	EndTime          string `json:"end_time"`
	PlanTime         int64  `json:"plan_time"`
	ActualRunTime    int64  `json:"actual_run_time"`
	LossTime         int64  `json:"loss_time"`
	LossTimeShouldBe int64  `json:"loss_time_should_be"`
	ReasonTimeHM     int64  `json:"reason_time_hm"`

	// 生产输入
	CurrentCT       float64 `json:"current_c_t"` // 理想节拍（秒/件）
	OutputQuantity  *int64  `json:"output_quantity"`
	RejectionQty    *int64  `json:"rejection_qty"`
	RejectionReason string  `json:"rejection_reason"`
	ReworkQty       *int64  `json:"rework_qty"`
	ReworkReason    string  `json:"rework_reason"`
	ReasonCode      string  `json:"reason_code"`
	Remarks         string  `json:"remarks"`
	LossTimeRemark  string  `json:"loss_time_remark"`

	// 源文件自带的 OEE 原始字符串，仅留作审计，不参与计算
	OEE string `json:"oee"`

	// 导入时计算的指标（四项同时生成，随行原子落库）
	Availability float64 `json:"availability"`
	QualityRate  float64 `json:"quality_rate"`
	Performance  float64 `json:"performance"` // 未封顶，允许 >100
	OEENew       float64 `json:"oee_new"`     // 未封顶，>100 由报表侧作为异常呈现
	ShiftType    string  `json:"shift_type"`  // "Active" | "Idle"
}

// ShiftType 取值
const (
	ShiftActive = "Active"
	ShiftIdle   = "Idle"
)
