package doctext

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const ocrTimeout = 60 * time.Second

// OCR 通过 tesseract 命令行识别图片文字
type OCR struct {
	binaryPath string
	language   string
}

func NewOCR(binaryPath, language string) *OCR {
	if binaryPath == "" {
		binaryPath = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &OCR{binaryPath: binaryPath, language: language}
}

// Recognize 对单个图片文件执行 OCR
func (o *OCR) Recognize(ctx context.Context, filePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ocrTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.binaryPath, filePath, "stdout", "-l", o.language)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("ocr timed out after %s", ocrTimeout)
		}
		if _, lookErr := exec.LookPath(o.binaryPath); lookErr != nil {
			return "", fmt.Errorf("tesseract binary not found: %s", o.binaryPath)
		}
		return "", fmt.Errorf("ocr failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
