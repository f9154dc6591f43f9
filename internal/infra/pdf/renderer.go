// Package pdf renders report deliverables with go-pdf/fpdf. One layout
// serves every tier; sections appear only when the tier unlocks them.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/bryanwahyu/wunderbrand/internal/domain/reports"
	"github.com/bryanwahyu/wunderbrand/internal/domain/scoring"
)

type rgb struct{ r, g, b int }

var (
	brandInk    = rgb{33, 30, 66}
	brandAccent = rgb{255, 92, 53}
	mutedText   = rgb{96, 96, 110}
	bandColors  = map[scoring.Band]rgb{
		scoring.BandWeak:   {220, 68, 55},
		scoring.BandMixed:  {242, 169, 0},
		scoring.BandStrong: {46, 160, 67},
	}
)

const (
	pageMargin = 18.0
	lineHeight = 5.5
	barWidth   = 90.0
)

// Renderer implements reports.Renderer.
type Renderer struct {
	// Author ends up in the PDF metadata.
	Author string
	// Now stamps the document; defaults to time.Now.
	Now func() time.Time
}

func NewRenderer(author string) *Renderer {
	return &Renderer{Author: author, Now: time.Now}
}

func (rd *Renderer) Render(r *reports.Report) ([]byte, error) {
	now := time.Now
	if rd.Now != nil {
		now = rd.Now
	}
	v := r.View()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.SetTitle(r.Tier.DocumentName(), true)
	doc.SetAuthor(rd.Author, true)
	doc.SetCreationDate(now())
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont("Helvetica", "I", 8)
		setText(doc, mutedText)
		doc.CellFormat(0, 6, tr(fmt.Sprintf("%s  |  %s  |  page %d", r.Tier.DocumentName(), v.ID, doc.PageNo())),
			"", 0, "C", false, 0, "")
	})
	doc.AddPage()

	p := &page{doc: doc, tr: tr}
	p.header(r, now())
	p.scoreBlock(v)
	p.pillarBars(r)

	if v.PrimaryInsight != nil && len(v.Insights) == 0 {
		p.section("Your primary opportunity")
		p.insight(*v.PrimaryInsight)
	}
	if len(v.Insights) > 0 {
		p.section("Pillar insights")
		for _, in := range v.Insights {
			p.insight(in)
		}
	}
	if len(v.Recommendations) > 0 {
		p.section("Recommendations")
		p.numbered(v.Recommendations)
	}
	if v.Blueprint != nil {
		p.blueprint(v.Blueprint)
	}
	if len(v.ActivationPlan) > 0 {
		p.section("Activation plan")
		p.numbered(v.ActivationPlan)
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("render %s: %w", r.ID, err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write %s: %w", r.ID, err)
	}
	return buf.Bytes(), nil
}

type page struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func setText(doc *fpdf.Fpdf, c rgb) { doc.SetTextColor(c.r, c.g, c.b) }
func setFill(doc *fpdf.Fpdf, c rgb) { doc.SetFillColor(c.r, c.g, c.b) }

func (p *page) header(r *reports.Report, at time.Time) {
	d := p.doc
	setFill(d, brandInk)
	d.Rect(0, 0, 210, 38, "F")

	d.SetXY(pageMargin, 10)
	d.SetFont("Helvetica", "B", 20)
	setText(d, rgb{255, 255, 255})
	d.CellFormat(0, 10, p.tr(r.Tier.DocumentName()), "", 1, "L", false, 0, "")

	d.SetX(pageMargin)
	d.SetFont("Helvetica", "", 10)
	sub := at.Format("January 2, 2006")
	if r.Company != "" {
		sub = r.Company + "  |  " + sub
	}
	d.CellFormat(0, 6, p.tr(sub), "", 1, "L", false, 0, "")
	d.SetY(46)
}

func (p *page) scoreBlock(v reports.View) {
	d := p.doc
	band := scoring.Band(v.Band)

	d.SetFont("Helvetica", "B", 11)
	setText(d, mutedText)
	d.CellFormat(0, 6, "WUNDERBRAND SCORE", "", 1, "L", false, 0, "")

	d.SetFont("Helvetica", "B", 36)
	setText(d, bandColors[band])
	d.CellFormat(40, 16, fmt.Sprintf("%d", v.Score), "", 0, "L", false, 0, "")
	d.SetFont("Helvetica", "", 12)
	setText(d, brandInk)
	d.CellFormat(0, 16, p.tr(fmt.Sprintf("/ 100  %s", band.Title())), "", 1, "L", false, 0, "")

	if v.Summary != "" {
		d.SetFont("Helvetica", "", 11)
		d.MultiCell(0, lineHeight, p.tr(v.Summary), "", "L", false)
	}
	d.Ln(4)
}

func (p *page) pillarBars(r *reports.Report) {
	d := p.doc
	p.section("Pillar scores")
	for _, pl := range scoring.AllPillars() {
		score := r.PillarScores.Get(pl)
		band := scoring.Classify(score)

		d.SetFont("Helvetica", "", 10)
		setText(d, brandInk)
		label := pl.Title()
		if pl == r.PrimaryPillar {
			label += " *"
		}
		d.CellFormat(40, 7, p.tr(label), "", 0, "L", false, 0, "")

		x, y := d.GetX(), d.GetY()
		setFill(d, rgb{235, 235, 240})
		d.Rect(x, y+1.5, barWidth, 4, "F")
		setFill(d, bandColors[band])
		d.Rect(x, y+1.5, barWidth*float64(score)/float64(scoring.MaxPillarScore), 4, "F")
		d.SetX(x + barWidth + 4)
		d.CellFormat(0, 7, fmt.Sprintf("%d/%d", score, scoring.MaxPillarScore), "", 1, "L", false, 0, "")
	}
	d.SetFont("Helvetica", "I", 8)
	setText(d, mutedText)
	d.CellFormat(0, 5, "* primary pillar: the biggest lever for your brand right now", "", 1, "L", false, 0, "")
	d.Ln(2)
}

func (p *page) section(title string) {
	d := p.doc
	d.Ln(3)
	d.SetFont("Helvetica", "B", 14)
	setText(d, brandAccent)
	d.CellFormat(0, 8, p.tr(title), "", 1, "L", false, 0, "")
	setText(d, brandInk)
}

func (p *page) insight(in reports.FormattedInsight) {
	d := p.doc
	d.SetFont("Helvetica", "B", 11)
	setText(d, brandInk)
	d.MultiCell(0, 6, p.tr(in.Heading), "", "L", false)
	d.SetFont("Helvetica", "", 10)
	if in.Summary != "" {
		d.MultiCell(0, lineHeight, p.tr(in.Summary), "", "L", false)
	}
	if in.Opportunity != "" {
		setText(d, mutedText)
		d.MultiCell(0, lineHeight, p.tr("Opportunity: "+in.Opportunity), "", "L", false)
		setText(d, brandInk)
	}
	d.Ln(2)
}

func (p *page) numbered(items []string) {
	d := p.doc
	d.SetFont("Helvetica", "", 10)
	for i, it := range items {
		d.MultiCell(0, lineHeight, p.tr(fmt.Sprintf("%d. %s", i+1, it)), "", "L", false)
	}
}

func (p *page) blueprint(b *reports.BlueprintContent) {
	d := p.doc
	d.AddPage()
	p.section("Brand Blueprint")
	p.field("Positioning statement", b.PositioningStatement)
	if len(b.MessagingPillars) > 0 {
		p.field("Messaging pillars", strings.Join(b.MessagingPillars, "\n"))
	}
	p.field("Brand voice", b.BrandVoice)
	p.field("Audience profile", b.AudienceProfile)
	if len(b.Taglines) > 0 {
		p.field("Tagline options", strings.Join(b.Taglines, "\n"))
	}
}

func (p *page) field(label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	d := p.doc
	d.SetFont("Helvetica", "B", 10)
	d.CellFormat(0, 6, p.tr(label), "", 1, "L", false, 0, "")
	d.SetFont("Helvetica", "", 10)
	d.MultiCell(0, lineHeight, p.tr(value), "", "L", false)
	d.Ln(2)
}
