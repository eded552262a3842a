package docmeta

import (
	"fmt"
	"sort"

	"github.com/ledongthuc/pdf"
)

// analyzePDF runs the PDF metadata rules. The parser panics on some
// malformed files; any panic or open failure degrades into a low-confidence
// analysis-error anomaly instead of failing the signal.
func (a *Analyzer) analyzePDF(path string, extracted map[string]any) (anomalies []anomaly) {
	defer func() {
		if r := recover(); r != nil {
			anomalies = append(anomalies, anomaly{
				kind:        "pdf_analysis_error",
				confidence:  30,
				description: fmt.Sprintf("PDF anomaly detection failed: %v", r),
			})
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return []anomaly{{
			kind:        "analysis_error",
			confidence:  50,
			description: fmt.Sprintf("PDF analysis failed: %v", err),
		}}
	}
	defer f.Close()

	pageCount := reader.NumPage()
	extracted["page_count"] = pageCount

	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		for _, key := range info.Keys() {
			if v := stringValue(info.Key(key)); v != "" {
				extracted["pdf_"+key] = v
			}
		}
	}

	if an := checkModification(info); an != nil {
		anomalies = append(anomalies, *an)
	}
	if an := checkFormFields(reader); an != nil {
		anomalies = append(anomalies, *an)
	}
	if an := checkPageSizes(reader, pageCount); an != nil {
		anomalies = append(anomalies, *an)
	}
	return anomalies
}

// checkModification flags documents whose info dictionary records a save
// after the original creation.
func checkModification(info pdf.Value) *anomaly {
	if info.IsNull() {
		return nil
	}
	creation := stringValue(info.Key("CreationDate"))
	modification := stringValue(info.Key("ModDate"))
	if creation == "" || modification == "" || creation == modification {
		return nil
	}
	return &anomaly{
		kind:        "pdf_modified",
		confidence:  75,
		description: "PDF has been modified since creation",
		details: map[string]any{
			"creation_date":     creation,
			"modification_date": modification,
		},
	}
}

// checkFormFields flags interactive AcroForm fields: a filled-in form is not
// forged per se, but its content is trivially editable.
func checkFormFields(reader *pdf.Reader) *anomaly {
	fields := reader.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	if fields.Kind() != pdf.Array || fields.Len() == 0 {
		return nil
	}

	typeSet := map[string]bool{}
	for i := 0; i < fields.Len(); i++ {
		ft := fields.Index(i).Key("FT").Name()
		if ft == "" {
			ft = "Unknown"
		}
		typeSet[ft] = true
	}
	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)

	return &anomaly{
		kind:        "form_fields",
		confidence:  60,
		description: fmt.Sprintf("PDF contains %d form field(s) - could be editable", fields.Len()),
		details:     map[string]any{"field_types": types},
	}
}

// checkPageSizes flags documents whose pages disagree with the first page's
// media box, a common artifact of page insertion.
func checkPageSizes(reader *pdf.Reader, pageCount int) *anomaly {
	type pageSize struct {
		page   int
		width  float64
		height float64
	}

	var sizes []pageSize
	for i := 1; i <= pageCount; i++ {
		box := reader.Page(i).V.Key("MediaBox")
		if box.Kind() != pdf.Array || box.Len() != 4 {
			continue
		}
		sizes = append(sizes, pageSize{
			page:   i,
			width:  box.Index(2).Float64() - box.Index(0).Float64(),
			height: box.Index(3).Float64() - box.Index(1).Float64(),
		})
	}
	if len(sizes) < 2 {
		return nil
	}

	first := sizes[0]
	var inconsistent []int
	for _, s := range sizes[1:] {
		if s.width != first.width || s.height != first.height {
			inconsistent = append(inconsistent, s.page)
		}
	}
	if len(inconsistent) == 0 {
		return nil
	}
	return &anomaly{
		kind:        "inconsistent_page_sizes",
		confidence:  70,
		description: fmt.Sprintf("Inconsistent page sizes on pages: %v", inconsistent),
		details: map[string]any{
			"expected_size":      []float64{first.width, first.height},
			"inconsistent_pages": inconsistent,
		},
	}
}

func stringValue(v pdf.Value) string {
	if v.Kind() != pdf.String {
		return ""
	}
	return v.Text()
}
