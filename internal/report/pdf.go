package report

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/rs/zerolog"
	"invoicer/internal/logger"
	"invoicer/pkg/services"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// column widths on the 12 column grid, in Columns order
var columnWidths = []int{2, 2, 2, 4, 2}

// PDFRenderer renders the service report with maroto.
type PDFRenderer struct {
	author string
	log    zerolog.Logger
}

var _ services.TimeReportRenderer = (*PDFRenderer)(nil)

// NewPDFRenderer returns a renderer. author is written to the PDF metadata.
func NewPDFRenderer(author string) *PDFRenderer {
	return &PDFRenderer{
		author: author,
		log:    logger.WithComponent("report"),
	}
}

// Render returns the A4 PDF for input.
func (r *PDFRenderer) Render(input services.ReportInput) ([]byte, error) {
	builder := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).WithRightMargin(15).
		WithTopMargin(15).WithBottomMargin(15).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(Title, true)
	if r.author != "" {
		builder = builder.WithAuthor(r.author, true)
	}

	m := maroto.New(builder.Build())

	m.AddRows(headerRows(input)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	for _, l := range lines(input.Entries) {
		m.AddRows(entryRow(l))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(TotalHours(input.Entries)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("report: generate pdf: %w", err)
	}

	r.log.Debug().
		Str("project", input.ProjectName).
		Int("entries", len(input.Entries)).
		Msg("Time report rendered")

	return doc.GetBytes(), nil
}

func headerRows(input services.ReportInput) []core.Row {
	return []core.Row{
		row.New(12).Add(col.New(12).Add(
			text.New(Title, props.Text{Style: fontstyle.Bold, Size: 16, Color: colorPrimary, Top: 2}),
		)),
		row.New(7).Add(col.New(12).Add(
			text.New(Subtitle(input), props.Text{Style: fontstyle.Bold, Size: 11, Top: 1}),
		)),
		row.New(7).Add(col.New(12).Add(
			text.New(Period(input), props.Text{Size: 9, Color: colorGray, Top: 1}),
		)),
	}
}

func tableHeaderRow() core.Row {
	cols := make([]core.Col, len(Columns))
	for i, heading := range Columns {
		textAlign := align.Left
		if i == len(Columns)-1 {
			textAlign = align.Right
		}
		cols[i] = col.New(columnWidths[i]).Add(text.New(heading, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: textAlign, Top: 1, Color: colorPrimary,
		}))
	}
	return row.New(7).Add(cols...)
}

func entryRow(l reportLine) core.Row {
	cell := props.Text{Size: 8, Align: align.Left, Top: 1}
	return row.New(6).Add(
		col.New(columnWidths[0]).Add(text.New(l.date, cell)),
		col.New(columnWidths[1]).Add(text.New(l.user, cell)),
		col.New(columnWidths[2]).Add(text.New(l.service, cell)),
		col.New(columnWidths[3]).Add(text.New(l.note, cell)),
		col.New(columnWidths[4]).Add(text.New(l.hoursStr, props.Text{Size: 8, Align: align.Right, Top: 1})),
	)
}

func totalRow(hours float64) core.Row {
	return row.New(8).Add(
		col.New(10).Add(text.New(totalLabel, props.Text{Style: fontstyle.Bold, Size: 9, Top: 1})),
		col.New(2).Add(text.New(FormatHours(hours), props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 1,
		})),
	)
}
