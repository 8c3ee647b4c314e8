package service

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// 上一轮人工检查留下的黄色高亮标记，连同其中的【...】提示一起去掉，保留原文
	reviewMarkerRegex = regexp.MustCompile(`<span[^>]*style\s*=\s*["'][^"']*background-color\s*:\s*yellow[^"']*["'][^>]*>(.*?)</span>`)
	reviewHintRegex   = regexp.MustCompile(`【[^】]*】`)
	lineBreakRegex    = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	htmlTagRegex      = regexp.MustCompile(`<[^>]*>`)
	spaceRunRegex     = regexp.MustCompile(`[ \t\x{00A0}\x{3000}]+`)
)

// CellCleaner 单元格文本清洗：去掉富文本标记、解码 HTML 实体、NFC 规范化
type CellCleaner struct{}

func NewCellCleaner() *CellCleaner {
	return &CellCleaner{}
}

// Clean 返回检查器看到的文本
func (p *CellCleaner) Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if strings.Contains(text, "<") {
		text = p.stripReviewMarkers(text)
		text = lineBreakRegex.ReplaceAllString(text, "\n")
		text = htmlTagRegex.ReplaceAllString(text, "")
	}
	// 先去标签再解码，避免 &lt; 解码后被当成标签
	text = html.UnescapeString(text)
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRunRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func (p *CellCleaner) stripReviewMarkers(text string) string {
	return reviewMarkerRegex.ReplaceAllStringFunc(text, func(match string) string {
		inner := reviewMarkerRegex.FindStringSubmatch(match)[1]
		inner = htmlTagRegex.ReplaceAllString(inner, "")
		return reviewHintRegex.ReplaceAllString(inner, "")
	})
}
