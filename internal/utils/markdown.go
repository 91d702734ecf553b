package utils

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	postMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
	)
	postPolicy = newPostPolicy()
)

// newPostPolicy 帖子正文白名单：UGC 基础上允许图片，外链新窗口且不传递 referrer、不计权重
func newPostPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.RequireNoFollowOnLinks(true)
	return p
}

// RenderMarkdown 帖子正文 markdown -> 清洗后的 HTML，再做展示层调整（见 enhancePostHTML）
func RenderMarkdown(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := postMarkdown.Convert([]byte(source), &buf); err != nil {
		// 不能把未清洗的内容原样输出
		return "<p>" + html.EscapeString(source) + "</p>"
	}
	return enhancePostHTML(string(postPolicy.SanitizeBytes(buf.Bytes())))
}
