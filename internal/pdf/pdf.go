// Package pdf renders billing documents (factures, devis, avoirs) to PDF
// files stored on disk. Rendering happens at emission time; the stored path
// becomes the document's lien_pdf and is immutable afterwards.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Document carries everything the renderer needs; it deliberately knows
// nothing about GORM models.
type Document struct {
	Kind         string // "FACTURE", "DEVIS", "AVOIR"
	Numero       string
	DateEmission time.Time
	ClientNom    string
	ClientAdresse string
	Description  string
	MontantHT    float64
	TVA          float64
	MontantTTC   float64
	Motif        string // avoirs uniquement
}

// Generator writes rendered PDFs under Dir.
type Generator struct {
	Dir string
}

func NewGenerator(dir string) *Generator { return &Generator{Dir: dir} }

// Render builds the PDF and writes it to disk, returning the stored path.
func (g *Generator) Render(doc Document) (string, error) {
	data, err := Build(doc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create pdf dir: %w", err)
	}
	// uuid suffix keeps re-emissions from clobbering an already sent artifact
	name := fmt.Sprintf("%s-%s.pdf", doc.Numero, uuid.NewString()[:8])
	path := filepath.Join(g.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

// Build renders the document and returns the raw PDF bytes.
func Build(doc Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		Build()
	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(8, fmt.Sprintf("%s %s", doc.Kind, doc.Numero), props.Text{
			Size: 16, Style: fontstyle.Bold,
		}),
		text.NewCol(4, doc.DateEmission.Format("02/01/2006"), props.Text{
			Size: 10, Align: align.Right, Top: 3,
		}),
	)
	m.AddRow(4, line.NewCol(12))

	m.AddRow(8, text.NewCol(12, doc.ClientNom, props.Text{Size: 11, Style: fontstyle.Bold, Top: 2}))
	if doc.ClientAdresse != "" {
		m.AddRow(6, text.NewCol(12, doc.ClientAdresse, props.Text{Size: 9}))
	}
	if doc.Description != "" {
		m.AddRow(10, text.NewCol(12, doc.Description, props.Text{Size: 10, Top: 4}))
	}
	if doc.Motif != "" {
		m.AddRow(8, text.NewCol(12, "Motif : "+doc.Motif, props.Text{Size: 9, Top: 2}))
	}

	m.AddRow(4, line.NewCol(12))
	m.AddRows(
		amountRow("Montant HT", doc.MontantHT, false),
		amountRow("TVA", doc.TVA, false),
		amountRow("Montant TTC", doc.MontantTTC, true),
	)

	res, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return res.GetBytes(), nil
}

func amountRow(label string, amount float64, bold bool) core.Row {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	return row.New(7).Add(
		col.New(8),
		text.NewCol(2, label, props.Text{Size: 10, Style: style, Align: align.Right}),
		text.NewCol(2, fmt.Sprintf("%.2f €", amount), props.Text{Size: 10, Style: style, Align: align.Right}),
	)
}
