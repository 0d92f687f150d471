package typegen

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheck_UpToDate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	fs := mustFileSet(t,
		File{Path: TypesFile, Data: []byte("export class A {}\n")},
		File{Path: CapabilitiesFile, Data: []byte("export {}\n")},
	)
	if err := WriteAll(dir, fs); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	result, err := Check(dir, fs)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.UpToDate() {
		t.Errorf("Expected up to date, got differences: %v", result.Differences())
	}
}

func TestCheck_Drift(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, TypesFile), []byte("export class A { x: string }\n"), 0644)
	os.WriteFile(filepath.Join(dir, "legacy.ts"), []byte("old\n"), 0644)

	fs := mustFileSet(t,
		File{Path: TypesFile, Data: []byte("export class A {}\n")},
		File{Path: CapabilitiesFile, Data: []byte("export {}\n")},
	)
	result, err := Check(dir, fs)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if result.UpToDate() {
		t.Fatal("Expected drift to be reported")
	}
	if len(result.Changed) != 1 || result.Changed[0] != TypesFile {
		t.Errorf("Expected %s changed, got: %v", TypesFile, result.Changed)
	}
	if len(result.Missing) != 1 || result.Missing[0] != CapabilitiesFile {
		t.Errorf("Expected %s missing, got: %v", CapabilitiesFile, result.Missing)
	}
	if len(result.Extra) != 1 || result.Extra[0] != "legacy.ts" {
		t.Errorf("Expected legacy.ts extra, got: %v", result.Extra)
	}
	if got := result.Differences(); len(got) != 3 {
		t.Errorf("Expected 3 differences, got: %v", got)
	}
}

func TestCheck_MissingDirectory(t *testing.T) {
	fs := mustFileSet(t, File{Path: TypesFile, Data: []byte("x\n")})

	result, err := Check(filepath.Join(t.TempDir(), "absent"), fs)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(result.Missing) != 1 {
		t.Errorf("Expected every file missing, got: %v", result.Missing)
	}
}
