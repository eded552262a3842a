package docmeta

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/forgesight/forgesight/internal/infrastructure/imageprep"
)

const exifTimeLayout = "2006:01:02 15:04:05"

var essentialExifTags = []string{"DateTime", "Make", "Model", "Software"}

// editorSignatures are substrings of the EXIF Software field that betray an
// image editor rather than a camera or scanner.
var editorSignatures = []string{"photoshop", "gimp", "paint", "editor", "adobe"}

type exifCollector struct {
	fields map[string]string
}

func (c *exifCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	val, err := tag.StringVal()
	if err != nil {
		val = tag.String()
	}
	c.fields[string(name)] = val
	return nil
}

// analyzeImage runs the EXIF rules against a raster document. A file without
// EXIF is not an error; it simply has everything missing.
func (a *Analyzer) analyzeImage(path string, info os.FileInfo, extracted map[string]any) []anomaly {
	fields := readEXIF(path)
	for name, val := range fields {
		extracted["exif_"+name] = val
	}

	width, height, dimErr := imageDimensions(path)
	if dimErr == nil {
		extracted["width"] = width
		extracted["height"] = height
	}

	var anomalies []anomaly

	// Edited images commonly have their camera provenance stripped.
	var missing []string
	for _, tag := range essentialExifTags {
		if _, ok := fields[tag]; !ok {
			missing = append(missing, tag)
		}
	}
	if len(missing) >= 2 {
		anomalies = append(anomalies, anomaly{
			kind:        "missing_exif",
			confidence:  60,
			description: fmt.Sprintf("Missing essential EXIF tags: %s", strings.Join(missing, ", ")),
			details:     map[string]any{"missing_tags": missing},
		})
	}

	if dt, ok := fields["DateTime"]; ok && strings.Contains(dt, " ") {
		if an := checkDateTime(dt, info.ModTime()); an != nil {
			anomalies = append(anomalies, *an)
		}
	}

	if software, ok := fields["Software"]; ok {
		lower := strings.ToLower(software)
		for _, sig := range editorSignatures {
			if strings.Contains(lower, sig) {
				anomalies = append(anomalies, anomaly{
					kind:        "editing_software",
					confidence:  70,
					description: fmt.Sprintf("Document created/edited with: %s", software),
					details:     map[string]any{"software": software},
				})
				break
			}
		}
	}

	var gpsTags []string
	for name := range fields {
		if strings.Contains(strings.ToLower(name), "gps") {
			gpsTags = append(gpsTags, name)
		}
	}
	if len(gpsTags) > 0 && !geographicPath(path) {
		sort.Strings(gpsTags)
		anomalies = append(anomalies, anomaly{
			kind:        "unexpected_gps",
			confidence:  55,
			description: "GPS data found in non-geographic document",
			details:     map[string]any{"gps_tags_found": gpsTags},
		})
	}

	if dimErr == nil && width > 0 && height > 0 {
		bytesPerPixel := float64(info.Size()) / float64(width*height)
		if bytesPerPixel < 0.1 {
			anomalies = append(anomalies, anomaly{
				kind:        "compression_anomaly",
				confidence:  65,
				description: fmt.Sprintf("Unusually high compression (%.4f bytes/pixel)", bytesPerPixel),
				details: map[string]any{
					"file_size_bytes": info.Size(),
					"dimensions":      fmt.Sprintf("%dx%d", width, height),
					"bytes_per_pixel": bytesPerPixel,
				},
			})
		}
	}

	return anomalies
}

// checkDateTime compares the claimed EXIF timestamp to the filesystem
// modification time. A capture date after the file was last written is
// impossible; a malformed one hints at hand-edited EXIF.
func checkDateTime(raw string, mtime time.Time) *anomaly {
	exifDate, err := time.ParseInLocation(exifTimeLayout, raw, time.Local)
	if err != nil {
		return &anomaly{
			kind:        "date_format_error",
			confidence:  50,
			description: fmt.Sprintf("Invalid or tampered EXIF DateTime format: %s", raw),
			details:     map[string]any{"error": err.Error()},
		}
	}
	if !exifDate.After(mtime) {
		return nil
	}
	return &anomaly{
		kind:       "date_anomaly",
		confidence: 85,
		description: fmt.Sprintf("EXIF DateTime (%s) is after file modification time (%s)",
			exifDate.Format("2006-01-02 15:04:05"), mtime.Format("2006-01-02 15:04:05")),
		details: map[string]any{
			"exif_date":        exifDate.Format(time.RFC3339),
			"file_mtime":       mtime.Format(time.RFC3339),
			"difference_hours": exifDate.Sub(mtime).Hours(),
		},
	}
}

func readEXIF(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return map[string]string{}
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return map[string]string{}
	}
	c := &exifCollector{fields: make(map[string]string)}
	_ = x.Walk(c)
	return c.fields
}

func geographicPath(path string) bool {
	lower := strings.ToLower(path)
	for _, keyword := range []string{"map", "location", "geo"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func imageDimensions(path string) (int, int, error) {
	return imageprep.DecodeConfig(path)
}
