package structure

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const defaultProps = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE properties SYSTEM "http://java.sun.com/dtd/properties.dtd">
<properties>
<comment>help translation</comment>
<entry key="Search">Search</entry>
<entry key="Home">Home</entry>
<entry key="You are in the help system of APPLICATION.">You are in the help system of Showcase.</entry>
</properties>`

func writeTranslation(t *testing.T, root, name string, data []byte) {
	t.Helper()
	dir := filepath.Join(root, "translation")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadTranslationOverlay(t *testing.T) {
	root := t.TempDir()
	writeTranslation(t, root, TranslationFile, []byte(defaultProps))
	// ISO-8859-1 encoded overlay: "Zur\xfcck" is "Zurück"
	overlay := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<properties>\n" +
		"<entry key=\"Search\">Suche</entry>\n<entry key=\"Previous\">Zur\xfcck</entry>\n</properties>"
	writeTranslation(t, root, "helptranslation_de.xml", []byte(overlay))

	table, err := LoadTranslation(root, "DE")
	if err != nil {
		t.Fatalf("LoadTranslation: %v", err)
	}
	if table.Language() != "de" {
		t.Errorf("expected lower-cased language, got %q", table.Language())
	}
	tests := map[string]string{
		"Search":   "Suche",
		"Home":     "Home",
		"Previous": "Zurück",
	}
	for key, want := range tests {
		if got := table.Get(key); got != want {
			t.Errorf("Get(%q) = %q, want %q", key, got, want)
		}
	}
	if table.Title() != "You are in the help system of Showcase." {
		t.Errorf("unexpected title %q", table.Title())
	}
}

func TestLoadTranslationMissingFiles(t *testing.T) {
	table, err := LoadTranslation(t.TempDir(), "fr")
	if err != nil {
		t.Fatalf("expected missing files to be skipped, got %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d entries", table.Len())
	}
}

func TestLoadTranslationMalformed(t *testing.T) {
	root := t.TempDir()
	writeTranslation(t, root, TranslationFile, []byte("<properties><entry key="))
	if _, err := LoadTranslation(root, "en"); err == nil || !strings.Contains(err.Error(), TranslationFile) {
		t.Fatalf("expected parse error naming the file, got %v", err)
	}
}
