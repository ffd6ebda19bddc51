package server

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/render"

	"github.com/KaramelBytes/datapro-cli/internal/analysis"
	"github.com/KaramelBytes/datapro-cli/internal/cleaning"
	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/ingest"
	"github.com/KaramelBytes/datapro-cli/internal/modeling"
	"github.com/KaramelBytes/datapro-cli/internal/session"
	"github.com/KaramelBytes/datapro-cli/internal/table"
	"github.com/KaramelBytes/datapro-cli/internal/viz"
)

// Preview describes a table the way the upload and preview endpoints report it.
type Preview struct {
	Shape   [2]int            `json:"shape"`
	Columns []string          `json:"columns"`
	Dtypes  map[string]string `json:"dtypes"`
	Head    []map[string]any  `json:"head"`
	Missing map[string]int    `json:"missing"`
}

func preview(t *table.Table, n int) Preview {
	dtypes := make(map[string]string, t.NumCols())
	for _, f := range t.Schema() {
		dtypes[f.Name] = f.Kind.String()
	}
	return Preview{
		Shape:   [2]int{t.NumRows(), t.NumCols()},
		Columns: t.ColumnNames(),
		Dtypes:  dtypes,
		Head:    records(t, n),
		Missing: t.MissingCounts(),
	}
}

// records renders the first n rows as JSON objects; nulls become null and numbers stay numbers.
func records(t *table.Table, n int) []map[string]any {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	cols := t.Columns()
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			switch {
			case c.IsNull(i):
				row[c.Name()] = nil
			case c.Kind() == table.KindNumeric:
				row[c.Name()] = c.Float(i)
			default:
				row[c.Name()] = c.Text(i)
			}
		}
		out[i] = row
	}
	return out
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return &errs.ValidationError{Field: "file", Message: fmt.Sprintf("invalid upload: %v", err)}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return &errs.ValidationError{Field: "file", Message: "no file provided"}
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !ingest.Supported(name) {
		return ingest.Unsupported(name)
	}
	t, err := ingest.Decode(name, file, ingest.Options{
		MaxRows:   s.opts.MaxRows,
		SheetName: r.FormValue("sheet_name"),
	})
	if err != nil {
		return &errs.ValidationError{Field: "file", Message: err.Error()}
	}
	if _, err := s.store.Replace(name, t); err != nil {
		return err
	}
	s.metrics.SetRows("original", t.NumRows())
	s.metrics.SetRows("cleaned", 0)
	render.JSON(w, r, map[string]any{
		"success": true,
		"message": "File uploaded successfully: " + name,
		"preview": preview(t, s.opts.PreviewRows),
	})
	return nil
}

func (s *Server) dataPreview(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.store.Session()
	if err != nil {
		return err
	}
	t := sess.Original
	render.JSON(w, r, map[string]any{
		"preview": preview(t, s.opts.PreviewRows),
		"stats":   analysis.SummaryStatistics(t),
		"cleaned": sess.HasCleaned(),
	})
	return nil
}

func (s *Server) columns(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.store.Session()
	if err != nil {
		return err
	}
	numeric := sess.Original.NumericNames()
	if numeric == nil {
		numeric = []string{}
	}
	render.JSON(w, r, map[string]any{
		"numeric": numeric,
		"all":     sess.Original.ColumnNames(),
	})
	return nil
}

func (s *Server) cleanData(w http.ResponseWriter, r *http.Request) error {
	var cfg cleaning.Config
	if err := decodeJSON(r, &cfg); err != nil {
		return err
	}
	var summary *cleaning.Summary
	sess, err := s.store.CommitCleaned(func(orig *table.Table) (*table.Table, error) {
		out, err := cleaning.Clean(orig, cfg)
		if err != nil {
			return nil, err
		}
		summary = cleaning.Summarize(orig, out, cfg)
		return out, nil
	})
	if err != nil {
		return err
	}
	t := sess.Cleaned
	s.metrics.SetRows("cleaned", t.NumRows())
	render.JSON(w, r, map[string]any{
		"success": true,
		"message": "Data cleaned successfully",
		"shape":   [2]int{t.NumRows(), t.NumCols()},
		"preview": records(t, s.opts.PreviewRows),
		"missing": t.MissingCounts(),
		"summary": summary,
	})
	return nil
}

func (s *Server) eda(w http.ResponseWriter, r *http.Request) error {
	t, err := s.store.Current()
	if err != nil {
		return err
	}
	res := analysis.Analyze(t)
	render.JSON(w, r, map[string]any{
		"success":       true,
		"stats":         res.Summary,
		"correlations":  res.Correlations,
		"distributions": res.Distributions,
	})
	return nil
}

type modelRequest struct {
	TaskType     string   `json:"task_type" validate:"required"`
	TargetColumn string   `json:"target_column"`
	NClusters    int      `json:"n_clusters" validate:"omitempty,min=1"`
	Seed         *int64   `json:"seed"`
	TestSize     *float64 `json:"test_size" validate:"omitempty,gt=0,lt=1"`
	NEstimators  int      `json:"n_estimators" validate:"omitempty,min=1,max=1000"`
	MaxDepth     int      `json:"max_depth" validate:"omitempty,min=1"`
}

func (s *Server) model(w http.ResponseWriter, r *http.Request) error {
	var req modelRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	task, err := modeling.ParseTask(req.TaskType)
	if err != nil {
		return err
	}
	t, err := s.store.Current()
	if err != nil {
		return err
	}
	p := s.opts.Model
	if req.NClusters != 0 {
		p.NClusters = req.NClusters
	}
	if req.Seed != nil {
		p.Seed = req.Seed
	}
	if req.TestSize != nil {
		p.TestSize = *req.TestSize
	}
	if req.NEstimators != 0 {
		p.NEstimators = req.NEstimators
	}
	if req.MaxDepth != 0 {
		p.MaxDepth = req.MaxDepth
	}
	res, err := modeling.Run(r.Context(), t, task, req.TargetColumn, p)
	if err != nil {
		return err
	}
	render.JSON(w, r, map[string]any{
		"success":   true,
		"task_type": task,
		"result":    res,
	})
	return nil
}

func (s *Server) visualize(w http.ResponseWriter, r *http.Request) error {
	var req viz.Request
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	t, err := s.store.Current()
	if err != nil {
		return err
	}
	spec, err := viz.Build(t, req)
	if err != nil {
		return err
	}
	render.JSON(w, r, map[string]any{"success": true, "chart": spec})
	return nil
}

func (s *Server) exportData(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.store.Session()
	if err != nil {
		return err
	}
	if !sess.HasCleaned() {
		return session.ErrNoCleanedData
	}
	var buf bytes.Buffer
	if err := ingest.WriteCSV(&buf, sess.Cleaned); err != nil {
		return err
	}
	name := fmt.Sprintf("cleaned_data_%s.csv", time.Now().Format("20060102_150405"))
	attach(w, "text/csv", name)
	_, _ = w.Write(buf.Bytes())
	return nil
}

func (s *Server) exportVisualization(w http.ResponseWriter, r *http.Request) error {
	var req viz.Request
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	t, err := s.store.Current()
	if err != nil {
		return err
	}
	spec, err := viz.Build(t, req)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.opts.Renderer.Render(&buf, spec); err != nil {
		return err
	}
	name := fmt.Sprintf("viz_%s_%s.png", spec.Kind, time.Now().Format("20060102_150405"))
	attach(w, "image/png", name)
	_, _ = w.Write(buf.Bytes())
	return nil
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.metrics.SetRows("original", 0)
	s.metrics.SetRows("cleaned", 0)
	render.JSON(w, r, map[string]any{"success": true, "message": "Data cleared"})
	return nil
}

func attach(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
