package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

type recordFile struct {
	Records []models.HealthRecord `json:"records" yaml:"records"`
}

// readRecords loads path ("-" for stdin). Records are sorted by date so
// hand-written files need not be ordered; duplicates still fail analysis.
func (a *app) readRecords(path string) ([]models.HealthRecord, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	records, err := decodeRecords(data, strings.ToLower(filepath.Ext(path)) == ".json")
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s contains no records", path)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return records, nil
}

// decodeRecords accepts a list or a {records: [...]} document. YAML is a
// superset of JSON, so only files named *.json take the strict JSON path.
func decodeRecords(data []byte, strictJSON bool) ([]models.HealthRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	list := trimmed[0] == '[' || trimmed[0] == '-'

	if strictJSON {
		if list {
			var out []models.HealthRecord
			err := json.Unmarshal(trimmed, &out)
			return out, err
		}
		var f recordFile
		err := json.Unmarshal(trimmed, &f)
		return f.Records, err
	}
	if list {
		var out []models.HealthRecord
		err := yaml.Unmarshal(trimmed, &out)
		return out, err
	}
	var f recordFile
	err := yaml.Unmarshal(trimmed, &f)
	return f.Records, err
}

// write renders v in the selected format. YAML goes through JSON first so
// keys match the API's field names.
func (a *app) write(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if a.output == "yaml" {
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = a.stdout.Write(buf.Bytes())
	return err
}
