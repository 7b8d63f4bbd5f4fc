package model

// UnlimitedUploads 无限制套餐的哨兵值
const UnlimitedUploads = -1

const (
	PlanFree     = "Free"
	PlanPro      = "Pro"
	PlanBusiness = "Business"
)

// Plan 订阅套餐定义。uploadLimit 永远从这里推导，不落库。
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       int      `json:"price"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	UploadLimit int      `json:"upload_limit"`
	Features    []string `json:"features"`
	Description string   `json:"description"`
}

// Plans 套餐目录，按展示顺序排列
var Plans = []Plan{
	{
		ID:          "free",
		Name:        PlanFree,
		Price:       0,
		Currency:    "ETB",
		Interval:    "month",
		UploadLimit: 5,
		Features:    []string{"Basic invoice uploads", "Email support", "5 invoices per month"},
		Description: "Perfect for getting started",
	},
	{
		ID:          "pro",
		Name:        PlanPro,
		Price:       1500,
		Currency:    "ETB",
		Interval:    "month",
		UploadLimit: UnlimitedUploads,
		Features:    []string{"Unlimited invoice uploads", "Advanced OCR processing", "Priority support", "Export to multiple formats", "API access"},
		Description: "Best for growing businesses",
	},
	{
		ID:          "business",
		Name:        PlanBusiness,
		Price:       5000,
		Currency:    "ETB",
		Interval:    "month",
		UploadLimit: UnlimitedUploads,
		Features:    []string{"All Pro features", "Dedicated support", "Custom integrations", "White-label options", "Advanced analytics"},
		Description: "For enterprise needs",
	},
}

// PlanByName 按套餐名或 id 查找（两种写法前端都在用）
func PlanByName(name string) (Plan, bool) {
	for _, p := range Plans {
		if p.Name == name || p.ID == name {
			return p, true
		}
	}
	return Plan{}, false
}

// UploadLimitForPlan 套餐对应的每月上传上限，未识别的套餐按 Free 处理
func UploadLimitForPlan(name string) int {
	if p, ok := PlanByName(name); ok {
		return p.UploadLimit
	}
	return 5
}
