package extract

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Fields 一张发票的四个关键字段，全部用字符串承载
type Fields struct {
	Vendor string `json:"vendor"`
	Date   string `json:"date"`
	Amount string `json:"amount"`
	TaxID  string `json:"taxId"`
}

// Fallback 什么都抽不出来时的兜底字段
func Fallback(now time.Time) Fields {
	return Fields{
		Vendor: "Unknown Vendor",
		Date:   now.UTC().Format("2006-01-02"),
		Amount: "0",
		TaxID:  "N/A",
	}
}

// Merge 按字段合并，primary 缺的字段用 fallback 补
func Merge(primary, fallback Fields) Fields {
	if primary.Vendor == "" {
		primary.Vendor = fallback.Vendor
	}
	if primary.Date == "" {
		primary.Date = fallback.Date
	}
	if primary.Amount == "" {
		primary.Amount = fallback.Amount
	}
	if primary.TaxID == "" {
		primary.TaxID = fallback.TaxID
	}
	return primary
}

// ParseModelJSON 解析模型返回的 JSON。模型经常把结果包在
// Markdown 代码块里，先剥掉围栏再解析。
func ParseModelJSON(raw string) (Fields, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// amount 字段模型有时给字符串有时给数字
	var aux struct {
		Vendor string      `json:"vendor"`
		Date   string      `json:"date"`
		Amount interface{} `json:"amount"`
		TaxID  string      `json:"taxId"`
	}
	if err := json.Unmarshal([]byte(s), &aux); err != nil {
		return Fields{}, fmt.Errorf("failed to parse model output: %w", err)
	}

	f := Fields{Vendor: aux.Vendor, Date: aux.Date, TaxID: aux.TaxID}
	switch v := aux.Amount.(type) {
	case string:
		f.Amount = v
	case float64:
		f.Amount = strconv.FormatFloat(v, 'f', -1, 64)
	}

	f.Vendor = strings.TrimSpace(f.Vendor)
	f.TaxID = strings.TrimSpace(f.TaxID)
	if f.Date != "" {
		f.Date = NormalizeDate(f.Date)
	}
	if f.Amount != "" {
		f.Amount = NormalizeAmount(f.Amount)
	}
	return f, nil
}

// 各字段的匹配器按优先级排列，先命中先用
var vendorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)vendor:\s*([A-Za-z0-9 &.,'-]+)`),
	regexp.MustCompile(`(?i)(?:from|company|supplier|issued by|billed by|bill from|business name):\s*([A-Za-z0-9 &.,'-]+)`),
	// 发票抬头：正文开头紧挨 invoice/bill 关键词的那段文字
	regexp.MustCompile(`(?im)^([A-Za-z0-9 &.,'-]+?)\s*(?:invoice|bill|receipt|statement)`),
	// 带公司后缀的名称
	regexp.MustCompile(`(?i)([A-Za-z0-9 &.,'-]{3,50})\s*(?:ltd|inc|corp|company|gmbh|ag|llc|co\.|limited)\b`),
	regexp.MustCompile(`(?i)(?:business|company|vendor):\s*([A-Za-z0-9 &.,'-]{3,50})`),
}

var datePatterns = []*regexp.Regexp{
	// "invoice_date: Mon Mar 30 2020" 这类带星期的写法
	regexp.MustCompile(`(?i)invoice_date:\s*([A-Za-z]+\s+[A-Za-z]+\s+\d{1,2}\s+\d{4})`),
	regexp.MustCompile(`(?i)(?:invoice\s+)?date[:\s]+([A-Za-z]+\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`),
	regexp.MustCompile(`(\d{2}-\d{2}-\d{4})`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2,4})`),
}

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)total[_\s]*amount:\s*(?:USD|ETB|EUR)?\s*[$€£]?\s*([\d,]+\.?\d*)`),
	regexp.MustCompile(`(?i)(?:total|amount|sum|due):\s*(?:USD|ETB|EUR)?\s*[$€£]?\s*([\d,]+\.?\d*)`),
	// 数字在前、关键词在后的写法，如 "$42.00 due"
	regexp.MustCompile(`(?i)[$€£]?\s*([\d,]+\.?\d*)\s*(?:total|amount|sum|due)\b`),
	regexp.MustCompile(`(?i)(?:grand\s+total|final\s+amount)[:\s]*(?:USD|ETB|EUR)?\s*[$€£]?\s*([\d,]+\.?\d*)`),
}

var taxIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)invoiced_number:\s*([A-Za-z0-9\-]+)`),
	regexp.MustCompile(`(?i)(?:tax\s*id|tax\s*number|vat(?:\s*(?:no|number|id))?|ein|tin)[:\s#]*([A-Za-z0-9\-]+)`),
	// 欧盟 VAT：两位国家码 + 9~12 位数字
	regexp.MustCompile(`([A-Z]{2}\d{9,12})`),
	// 美国 EIN：XX-XXXXXXX
	regexp.MustCompile(`(\d{2}-\d{7})`),
	// 通用税号：10~15 位大写字母数字
	regexp.MustCompile(`([A-Z0-9]{10,15})`),
}

// FromText 对原始文本跑正则抽取，抽不到的字段留空
func FromText(text string) Fields {
	var f Fields
	f.Vendor = firstMatch(vendorPatterns, text)
	if raw := firstMatch(datePatterns, text); raw != "" {
		f.Date = NormalizeDate(raw)
	}
	if raw := firstMatch(amountPatterns, text); raw != "" {
		f.Amount = NormalizeAmount(raw)
	}
	f.TaxID = firstMatch(taxIDPatterns, text)
	return f
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var (
	isoDatePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)
	dashDatePattern  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{2,4})$`)
)

var monthNameLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Mon Jan 2 2006",
}

// NormalizeDate 把常见日期写法统一成 YYYY-MM-DD。
// 斜杠和短横格式按美式 MM/DD/YYYY 解释，两位年份视为 2000 年代。
// 实在解析不了就原样返回并记日志，让校验环节去拦。
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)

	if isoDatePattern.MatchString(raw) {
		return raw
	}

	m := slashDatePattern.FindStringSubmatch(raw)
	if m == nil {
		m = dashDatePattern.FindStringSubmatch(raw)
	}
	if m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		return fmt.Sprintf("%s-%02d-%02d", year, month, day)
	}

	for _, layout := range monthNameLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}

	log.Printf("extract: unrecognized date format: %q", raw)
	return raw
}

// NormalizeAmount 去掉货币符号和千分位
func NormalizeAmount(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "").Replace(s)
	s = strings.TrimSuffix(s, ".")
	return s
}
