package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ehopn/invoice_go_server/internal/pkg/doctext"
	"github.com/ehopn/invoice_go_server/internal/pkg/extract"
	"github.com/ehopn/invoice_go_server/internal/pkg/gemini"
)

const extractPrompt = `Extract the following fields from this invoice text and respond with ONLY a JSON object, no explanations:
{"vendor": "<company that issued the invoice>", "date": "<invoice date in YYYY-MM-DD>", "amount": "<total amount as a decimal number>", "taxId": "<tax identification number>"}

Invoice text:
`

// ExtractService 发票字段抽取流水线：
// 文本抽取 -> Gemini -> 正则兜底 -> 默认值。
// 只有文本抽取本身失败才报错，后面的级别逐级降级。
type ExtractService struct {
	docExtractor *doctext.Extractor
	geminiClient *gemini.Client
}

func NewExtractService(docExtractor *doctext.Extractor, geminiClient *gemini.Client) *ExtractService {
	return &ExtractService{
		docExtractor: docExtractor,
		geminiClient: geminiClient,
	}
}

// ExtractFields 从上传文件中抽取发票字段。
// 返回的 bool 表示是否由 AI 成功抽取。文本抽取失败时同样返回
// 兜底字段，由调用方决定怎么呈现。
func (s *ExtractService) ExtractFields(ctx context.Context, filePath, mime string) (extract.Fields, bool, error) {
	fallback := extract.Fallback(time.Now())

	text, err := s.docExtractor.Extract(ctx, filePath, mime)
	if err != nil {
		log.Printf("extract: text extraction failed for %s: %v", filePath, err)
		return fallback, false, fmt.Errorf("failed to extract text: %w", err)
	}
	if text == doctext.SpreadsheetPlaceholder || strings.TrimSpace(text) == "" {
		return fallback, false, nil
	}

	if fields, ok := s.extractWithGemini(ctx, text); ok {
		return extract.Merge(fields, fallback), true, nil
	}

	// AI 不可用或输出不可解析，退回正则
	fields := extract.FromText(text)
	return extract.Merge(fields, fallback), false, nil
}

func (s *ExtractService) extractWithGemini(ctx context.Context, text string) (extract.Fields, bool) {
	if s.geminiClient == nil {
		return extract.Fields{}, false
	}

	raw, err := s.geminiClient.GenerateContent(ctx, extractPrompt+text)
	if err != nil {
		if !errors.Is(err, gemini.ErrNoAPIKey) {
			log.Printf("extract: gemini failed: %v", err)
		}
		return extract.Fields{}, false
	}

	fields, err := extract.ParseModelJSON(raw)
	if err != nil {
		log.Printf("extract: %v", err)
		return extract.Fields{}, false
	}

	return fields, true
}
