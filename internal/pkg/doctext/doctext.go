package doctext

import (
	"context"
	"fmt"
)

// Kind 上传文档的类别，决定走哪条文本抽取路径
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindImage
	KindSpreadsheet
)

// mimeKinds 允许上传的 MIME 类型及其类别
var mimeKinds = map[string]Kind{
	"application/pdf": KindPDF,
	"image/jpeg":      KindImage,
	"image/jpg":       KindImage,
	"image/png":       KindImage,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": KindSpreadsheet,
	"application/vnd.ms-excel":                                          KindSpreadsheet,
}

// KindForMIME 返回 MIME 对应的文档类别，不认识的返回 KindUnknown
func KindForMIME(mime string) Kind {
	return mimeKinds[mime]
}

// IsSupportedMIME 判断是否允许上传
func IsSupportedMIME(mime string) bool {
	_, ok := mimeKinds[mime]
	return ok
}

// SpreadsheetPlaceholder 表格类文件没有文本通道时返回的占位文本，
// 上层看到它就走兜底字段。
const SpreadsheetPlaceholder = "Excel file detected - using fallback data extraction"

// Extractor 按文档类别派发文本抽取
type Extractor struct {
	ocr *OCR
}

func NewExtractor(ocr *OCR) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract 从文件中抽取纯文本。每种支持的类型要么给出非空文本，
// 要么返回错误；表格类固定返回占位文本。
func (e *Extractor) Extract(ctx context.Context, filePath, mime string) (string, error) {
	switch KindForMIME(mime) {
	case KindPDF:
		return ExtractPDFText(filePath)
	case KindImage:
		return e.ocr.Recognize(ctx, filePath)
	case KindSpreadsheet:
		return SpreadsheetPlaceholder, nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", mime)
	}
}
