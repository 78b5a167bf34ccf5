package exportengine

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/feedpipe/catalog-worker/internal/pipeline"
)

// zipParts maps a ZIP archive's part paths to their raw bytes, the
// "raw ZIP directory" layer from spec.md §4.5.
type zipParts map[string][]byte

func readZIP(raw []byte) (zipParts, error) {
	r, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("exportengine: open zip: %w", err)
	}
	parts := zipParts{}
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("exportengine: open part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("exportengine: read part %s: %w", f.Name, err)
		}
		parts[f.Name] = data
	}
	return parts, nil
}

// resolveSheetPath (below) resolves a sheet name to its worksheet part
// path by reading xl/workbook.xml (name -> r:id) and
// xl/_rels/workbook.xml.rels (r:id -> Target).
type sheetEntry struct {
	Name string `xml:"name,attr"`
	RID  string `xml:"id,attr"`
}

type workbookXML struct {
	Sheets struct {
		Sheet []sheetEntry `xml:"sheet"`
	} `xml:"sheets"`
}

type relationshipEntry struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

type relationshipsXML struct {
	Relationship []relationshipEntry `xml:"Relationship"`
}

func resolveSheetPath(parts zipParts, sheetName string) (string, error) {
	var wb workbookXML
	if err := xml.Unmarshal(parts["xl/workbook.xml"], &wb); err != nil {
		return "", fmt.Errorf("exportengine: parse workbook.xml: %w", err)
	}

	var rid string
	for _, s := range wb.Sheets.Sheet {
		if s.Name == sheetName {
			rid = s.RID
			break
		}
	}
	if rid == "" {
		return "", pipeline.ErrRequiredSheetAbsent(sheetName)
	}

	var rels relationshipsXML
	if err := xml.Unmarshal(parts["xl/_rels/workbook.xml.rels"], &rels); err != nil {
		return "", fmt.Errorf("exportengine: parse workbook.xml.rels: %w", err)
	}

	for _, r := range rels.Relationship {
		if r.ID == rid {
			return "xl/" + r.Target, nil
		}
	}
	return "", pipeline.ErrRequiredSheetAbsent(sheetName)
}

// VerifyIntegrity performs the ZIP-level integrity checks spec.md
// §4.5 step 9 calls out as beyond what the spreadsheet library alone
// can enforce: styles.xml byte-identity, protected sheets'
// byte-identity, and the data sheet's <sheetViews> byte-identity.
func VerifyIntegrity(templateRaw, outputRaw []byte, spec TemplateSpec) error {
	tmplParts, err := readZIP(templateRaw)
	if err != nil {
		return err
	}
	outParts, err := readZIP(outputRaw)
	if err != nil {
		return err
	}

	if err := compareDigest(tmplParts["xl/styles.xml"], outParts["xl/styles.xml"]); err != nil {
		return pipeline.ErrStylesMismatch(err.Error())
	}

	for _, sheet := range spec.ProtectedSheets {
		tPath, err := resolveSheetPath(tmplParts, sheet)
		if err != nil {
			return err
		}
		oPath, err := resolveSheetPath(outParts, sheet)
		if err != nil {
			return err
		}
		if err := compareDigest(tmplParts[tPath], outParts[oPath]); err != nil {
			return pipeline.ErrProtectedSheetMismatch(sheet + ": " + err.Error())
		}
	}

	dataPathT, err := resolveSheetPath(tmplParts, spec.DataSheet)
	if err != nil {
		return err
	}
	dataPathO, err := resolveSheetPath(outParts, spec.DataSheet)
	if err != nil {
		return err
	}

	tSheetViews, err := extractSheetViewsPrefix(tmplParts[dataPathT])
	if err != nil {
		return err
	}
	oSheetViews, err := extractSheetViewsPrefix(outParts[dataPathO])
	if err != nil {
		return err
	}
	if !bytes.Equal(tSheetViews, oSheetViews) {
		return pipeline.ErrFreezePaneMismatch(spec.DataSheet)
	}

	return nil
}

func compareDigest(a, b []byte) error {
	if len(a) != len(b) {
		return fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	da := sha256.Sum256(a)
	db := sha256.Sum256(b)
	if da != db {
		return fmt.Errorf("digest mismatch")
	}
	return nil
}

// extractSheetViewsPrefix decodes only the XML prefix up to the
// <sheetData> sentinel, never the full data-sheet XML (which may
// exceed tens of MB), and returns the raw bytes of the <sheetViews>
// element (which carries freeze-pane state) found in that prefix.
func extractSheetViewsPrefix(sheetXML []byte) ([]byte, error) {
	sentinel := []byte("<sheetData")
	end := bytes.Index(sheetXML, sentinel)
	if end < 0 {
		end = len(sheetXML)
	}
	prefix := sheetXML[:end]

	start := bytes.Index(prefix, []byte("<sheetViews"))
	if start < 0 {
		return nil, nil // template has no sheetViews element; nothing to compare
	}
	closeTag := bytes.Index(prefix[start:], []byte("</sheetViews>"))
	if closeTag < 0 {
		// self-closing <sheetViews .../>
		selfClose := bytes.Index(prefix[start:], []byte("/>"))
		if selfClose < 0 {
			return nil, fmt.Errorf("exportengine: malformed sheetViews element")
		}
		return prefix[start : start+selfClose+2], nil
	}
	endTag := start + closeTag + len("</sheetViews>")
	return prefix[start:endTag], nil
}
