package dto

// CreateInvoiceRequest 录入发票请求。上传核对后保存时
// 带上 file_url，纯手工录入可以不传。
type CreateInvoiceRequest struct {
	Vendor  string `json:"vendor" binding:"required,max=200"`
	Date    string `json:"date" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
	TaxID   string `json:"tax_id" binding:"required,max=50"`
	FileURL string `json:"file_url" binding:"omitempty,max=500"`
}

// UpdateInvoiceRequest 更新发票请求，字段全部可选
type UpdateInvoiceRequest struct {
	Vendor *string `json:"vendor,omitempty" binding:"omitempty,max=200"`
	Date   *string `json:"date,omitempty"`
	Amount *string `json:"amount,omitempty"`
	TaxID  *string `json:"tax_id,omitempty" binding:"omitempty,max=50"`
}

// UploadInvoiceResponse 上传解析响应，数据只是抽取结果，
// 等客户端核对后再提交保存
type UploadInvoiceResponse struct {
	Vendor    string `json:"vendor"`
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	TaxID     string `json:"tax_id"`
	FileURL   string `json:"file_url"`
	Extracted bool   `json:"extracted"` // AI 抽取成功为 true，走兜底为 false
}
