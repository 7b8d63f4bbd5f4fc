package doctext

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText 逐页按行读取 PDF 文本
func ExtractPDFText(filePath string) (string, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			// 单页失败不影响其他页
			continue
		}

		for _, row := range rows {
			for _, word := range row.Content {
				sb.WriteString(word.S)
				sb.WriteString(" ")
			}
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}
