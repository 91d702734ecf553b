package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 正文标题整体下移两级，h1/h2 留给页面和帖子标题
var headingShift = map[string]string{
	"h1": "h3",
	"h2": "h4",
	"h3": "h5",
	"h4": "h6",
	"h5": "h6",
}

// enhancePostHTML 处理已清洗的正文 HTML：
// 标题降级，表格包一层可横向滚动的容器，图片懒加载且不带 referrer。
// 解析失败时原样返回。
func enhancePostHTML(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	doc.Find("h1, h2, h3, h4, h5").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			if to, ok := headingShift[n.Data]; ok {
				n.Data = to
				n.DataAtom = 0
			}
		}
	})

	doc.Find("table").WrapHtml(`<div class="table-wrap"></div>`)

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("loading", "lazy")
		s.SetAttr("referrerpolicy", "no-referrer")
		if _, ok := s.Attr("alt"); !ok {
			s.SetAttr("alt", "")
		}
	})

	// goquery 会补全 html/body，只取 body 内部
	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlStr
	}
	return out
}
