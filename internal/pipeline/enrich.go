package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"autopress/internal/core"
	"autopress/internal/logger"
)

// enrichStage post-processes the finished draft: embeds sourced images under
// the leading sections, links the first mention of each secondary keyword to
// the project site, and checks keyword density. It is strictly best-effort;
// the draft survives any failure here untouched.
type enrichStage struct{}

func (s *enrichStage) Name() string { return "enrich" }

func (s *enrichStage) Run(ctx context.Context, job *Job) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(job.Article.HTMLBody))
	if err != nil {
		return fmt.Errorf("failed to parse draft HTML: %w", err)
	}

	embedImages(doc, job.Images)
	if job.Project.SiteURL != "" {
		linkKeywords(doc, job.Project.SiteURL, job.Keywords.Secondary)
	}

	html, err := doc.Find("body").Html()
	if err != nil {
		return fmt.Errorf("failed to serialize enriched HTML: %w", err)
	}

	job.Article.HTMLBody = html
	job.Article.WordCount = countWords(html)
	checkDensity(doc.Text(), job.Keywords, job.Item.Title)
	return nil
}

// embedImages inserts a figure after each of the first len(images) H2
// headings. Images beyond the heading count are dropped rather than stacked.
func embedImages(doc *goquery.Document, imgs []core.Image) {
	if len(imgs) == 0 {
		return
	}
	doc.Find("h2").EachWithBreak(func(i int, heading *goquery.Selection) bool {
		if i >= len(imgs) {
			return false
		}
		img := imgs[i]
		caption := ""
		if img.Photographer != "" {
			caption = fmt.Sprintf("<figcaption>Photo by %s</figcaption>", escapeHTML(img.Photographer))
		}
		heading.AfterHtml(fmt.Sprintf(
			`<figure><img src=%q alt=%q loading="lazy"/>%s</figure>`,
			img.URL, img.Alt, caption,
		))
		return true
	})
}

// linkKeywords turns the first plain-text mention of each secondary keyword
// into a site-search link. Paragraphs that already contain a link are left
// alone to avoid nesting anchors.
func linkKeywords(doc *goquery.Document, siteURL string, keywords []string) {
	siteURL = strings.TrimRight(siteURL, "/")
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(keyword))
		if err != nil {
			continue
		}
		doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			if p.Find("a").Length() > 0 {
				return true
			}
			html, err := p.Html()
			if err != nil || !pattern.MatchString(html) {
				return true
			}
			href := siteURL + "/?s=" + url.QueryEscape(keyword)
			replaced := false
			html = pattern.ReplaceAllStringFunc(html, func(match string) string {
				if replaced {
					return match
				}
				replaced = true
				return fmt.Sprintf(`<a href=%q>%s</a>`, href, match)
			})
			p.SetHtml(html)
			return false
		})
	}
}

// checkDensity logs when the primary keyword lands well off its target
// density. The draft still ships; density is advisory.
func checkDensity(text string, plan KeywordPlan, title string) {
	if plan.Primary == "" || plan.TargetDensity <= 0 {
		return
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return
	}
	occurrences := strings.Count(strings.ToLower(text), strings.ToLower(plan.Primary))
	density := float64(occurrences) / float64(words)
	if density < plan.TargetDensity/3 {
		logger.Warn("primary keyword density well below target",
			"title", title, "keyword", plan.Primary,
			"density", fmt.Sprintf("%.4f", density),
			"target", fmt.Sprintf("%.4f", plan.TargetDensity))
	}
}

// countWords counts the words of an HTML fragment's visible text.
func countWords(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return len(strings.Fields(html))
	}
	return len(strings.Fields(doc.Text()))
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
