package results

import (
	"go.uber.org/zap"

	"github.com/JnliaH/ChromaQuant/internal/dataset"
	"github.com/JnliaH/ChromaQuant/internal/formula"
	"github.com/JnliaH/ChromaQuant/internal/xlsx"
)

// Report writes every registered data set to a new workbook at path and
// returns the path. Sheets referenced by formulas but holding no data set
// are created empty so every reference stays valid.
func (r *Results) Report(path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if path == "" {
		path = DefaultPath
	}
	r.update()

	w := xlsx.NewWriter(r.logger)
	defer w.Close()

	var all []dataset.DataSet
	for _, t := range r.tables {
		all = append(all, t)
	}
	for _, b := range r.breakdowns {
		all = append(all, b)
	}
	for _, v := range r.values {
		all = append(all, v)
	}

	referenced := make(map[string]bool)
	var order []string
	for _, ds := range all {
		if err := w.WriteDataSet(ds); err != nil {
			return "", err
		}
		for _, p := range ds.Cells() {
			if !p.Formula {
				continue
			}
			s, _ := p.Value.(string)
			for _, sheet := range formula.Sheets(s) {
				if !referenced[sheet] {
					referenced[sheet] = true
					order = append(order, sheet)
				}
			}
		}
	}
	for _, sheet := range order {
		if err := w.EnsureSheet(sheet); err != nil {
			return "", err
		}
	}

	if err := w.SaveAs(path); err != nil {
		return "", err
	}
	r.logger.Info("Wrote report",
		zap.String("path", path),
		zap.Strings("sheets", w.Sheets()),
		zap.Int("data_sets", len(all)))
	return path, nil
}
