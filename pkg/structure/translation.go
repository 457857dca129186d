package structure

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/vanderheijden86/helpview/pkg/i18n"
)

// TranslationFile is the default translation below <root>/translation/.
// A language overlay lives next to it as helptranslation_<lang>.xml.
const TranslationFile = "helptranslation.xml"

// properties is the XML form of a Java properties file.
type properties struct {
	XMLName xml.Name `xml:"properties"`
	Entries []struct {
		Key   string `xml:"key,attr"`
		Value string `xml:",chardata"`
	} `xml:"entry"`
}

// LoadTranslation reads the default translation of a help root and overlays
// the file for lang. Missing files are skipped; a help root without any
// translation yields an empty table.
func LoadTranslation(root, lang string) (*i18n.Table, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	table := i18n.New(lang)

	dir := filepath.Join(root, "translation")
	files := []string{filepath.Join(dir, TranslationFile)}
	if lang != "" {
		ext := filepath.Ext(TranslationFile)
		files = append(files, filepath.Join(dir, strings.TrimSuffix(TranslationFile, ext)+"_"+lang+ext))
	}

	for _, file := range files {
		props, err := readProperties(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return table, err
		}
		table.Merge(props)
	}
	return table, nil
}

func readProperties(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	props, err := ParseProperties(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return props, nil
}

// ParseProperties decodes an XML properties document. Declared encodings
// other than UTF-8 (ISO-8859-1 is common) are converted.
func ParseProperties(r io.Reader) (map[string]string, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var p properties
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(p.Entries))
	for _, e := range p.Entries {
		out[e.Key] = e.Value
	}
	return out, nil
}
