package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ZacharyZcR/readpe/internal/field"
	"github.com/ZacharyZcR/readpe/internal/flags"
	"github.com/ZacharyZcR/readpe/internal/pe"
	"github.com/ZacharyZcR/readpe/internal/petest"
)

func init() {
	color.NoColor = true
}

func oneSectionImage() *pe.Image {
	img := petest.New()
	img.AddSection(petest.Section{
		Name:             ".text",
		VirtualSize:      0x1000,
		VirtualAddress:   0x1000,
		SizeOfRawData:    0x200,
		PointerToRawData: 0x400,
		Characteristics:  0x60000020,
	})
	return pe.NewImage("one.exe", img.Bytes())
}

func newTestReporter(w *bytes.Buffer) *Reporter {
	r := NewReporter(w, flags.Default())
	r.SetColor(false)
	return r
}

func assertGolden(t *testing.T, name, got string) {
	t.Helper()
	want, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	if got == string(want) {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(want)),
		B:        difflib.SplitLines(got),
		FromFile: name,
		ToFile:   "got",
		Context:  2,
	})
	t.Errorf("output differs from %s:\n%s", name, diff)
}

func TestReportText(t *testing.T) {
	var out bytes.Buffer
	r := newTestReporter(&out)

	headers, err := r.Report(oneSectionImage(), pe.Options{})
	require.NoError(t, err)
	require.Len(t, headers.Sections, 1)
	assertGolden(t, "one_section.golden", out.String())
}

func TestReportTextNoSections(t *testing.T) {
	var out bytes.Buffer
	r := newTestReporter(&out)

	_, err := r.Report(pe.NewImage("min.exe", petest.New().Bytes()), pe.Options{})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "COFF/File header\n")
	assert.Contains(t, out.String(), "Number of Sections:               0 \n")
	assert.NotContains(t, out.String(), "Section\n")
}

func TestReportTextStopsAtFailure(t *testing.T) {
	img := petest.New()
	img.Signature = [4]byte{'N', 'E', 0, 0}

	var out bytes.Buffer
	r := newTestReporter(&out)
	_, err := r.Report(pe.NewImage("ne.exe", img.Bytes()), pe.Options{})
	require.True(t, errors.Is(err, pe.ErrInvalidMagic), "got %v", err)
	assert.True(t, strings.HasPrefix(out.String(), "DOS Header\n"))
	assert.NotContains(t, out.String(), "COFF/File header")
}

func TestReportHiddenSignature(t *testing.T) {
	var out bytes.Buffer
	r := newTestReporter(&out)
	_, err := r.Report(oneSectionImage(), pe.Options{})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Signature")
}

func TestReportLayout(t *testing.T) {
	var out bytes.Buffer
	r := newTestReporter(&out)
	r.SetLabelWidth(20)
	r.SetFlagIndent(8)

	_, err := r.Report(pe.NewImage("min.exe", petest.New().Bytes()), pe.Options{})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "    Machine:            0x8664 IMAGE_FILE_MACHINE_AMD64\n")
	assert.Contains(t, out.String(), "\n        IMAGE_FILE_EXECUTABLE_IMAGE\n")
	assert.Contains(t, out.String(), "    Size of header in paragraphs:4 \n")
}

func TestReportUnknownFlags(t *testing.T) {
	img := petest.New()
	img.Machine = 0x1234
	img.Characteristics = 0x0002 | 0x0040

	var out bytes.Buffer
	r := newTestReporter(&out)
	_, err := r.Report(pe.NewImage("odd.exe", img.Bytes()), pe.Options{})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "0x1234 UNKNOWN FLAG MAPPING: 0x1234\n")
	assert.Contains(t, out.String(), "UNKNOWN FLAG MAPPING: 0x40\n")
}

func TestReportJSON(t *testing.T) {
	var out bytes.Buffer
	r := newTestReporter(&out)
	require.NoError(t, r.SetFormat(FormatJSON))

	_, err := r.Report(oneSectionImage(), pe.Options{})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	var doc Document
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "one.exe", doc.File)
	assert.Equal(t, "application/vnd.microsoft.portable-executable", doc.Kind)
	assert.Empty(t, doc.Error)
	require.Len(t, doc.Headers, 3)
	assert.Equal(t, "dos", doc.Headers[0].Kind)
	assert.Equal(t, "coff", doc.Headers[1].Kind)
	assert.Equal(t, uint64(0x40), doc.Headers[1].Offset)
	assert.Equal(t, "section", doc.Headers[2].Kind)
	assert.Equal(t, uint64(0x58), doc.Headers[2].Offset)

	chars := doc.Headers[2].Fields[len(doc.Headers[2].Fields)-1]
	assert.Equal(t, field.Line{
		Key:   pe.KeySectionCharacteristics,
		Label: "Characteristics",
		Value: "0x60000020",
		Flags: []string{"IMAGE_SCN_CNT_CODE", "IMAGE_SCN_MEM_EXECUTE", "IMAGE_SCN_MEM_READ"},
	}, chars)
}

func TestReportJSONRecordsError(t *testing.T) {
	var out bytes.Buffer
	r := newTestReporter(&out)
	require.NoError(t, r.SetFormat(FormatJSON))

	_, err := r.Report(pe.NewImage("short.exe", []byte("MZ")), pe.Options{})
	require.True(t, errors.Is(err, field.ErrOutOfBounds), "got %v", err)

	var doc Document
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, err.Error(), doc.Error)
	assert.Empty(t, doc.Headers)
}

func TestReportYAML(t *testing.T) {
	var out bytes.Buffer
	r := newTestReporter(&out)
	require.NoError(t, r.SetFormat(FormatYAML))

	_, err := r.Report(oneSectionImage(), pe.Options{})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	var doc Document
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	require.Len(t, doc.Headers, 3)
	assert.Equal(t, "COFF/File header", doc.Headers[1].Title)
	assert.Equal(t, "coff_machine", doc.Headers[1].Fields[0].Key)
	assert.Equal(t, "0x8664 IMAGE_FILE_MACHINE_AMD64", doc.Headers[1].Fields[0].Value)
}

func TestSetFormat(t *testing.T) {
	r := NewReporter(&bytes.Buffer{}, nil)
	assert.NoError(t, r.SetFormat(FormatYAML))
	assert.Error(t, r.SetFormat("xml"))
	assert.Equal(t, FormatYAML, r.format)
}

func TestPrintFile(t *testing.T) {
	var out bytes.Buffer
	r := newTestReporter(&out)
	require.NoError(t, r.PrintFile(pe.NewImage("a.exe", make([]byte, 2048))))
	assert.Equal(t, "==> a.exe (data, 2.0 KiB) <==\n", out.String())

	out.Reset()
	require.NoError(t, r.SetFormat(FormatJSON))
	require.NoError(t, r.PrintFile(pe.NewImage("a.exe", nil)))
	assert.Empty(t, out.String())
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatSize(tt.size); got != tt.want {
				t.Errorf("formatSize(%d) = %q, want %q", tt.size, got, tt.want)
			}
		})
	}
}

func TestPrintRegistry(t *testing.T) {
	reg, err := flags.Load(strings.NewReader(`
coff_machine:
  0x8664: IMAGE_FILE_MACHINE_AMD64
  0x014c: IMAGE_FILE_MACHINE_I386
coff_characteristics:
  0x0002: IMAGE_FILE_EXECUTABLE_IMAGE
`))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, PrintRegistry(&out, reg))
	assert.Equal(t, `coff_characteristics:
    0x00000002  IMAGE_FILE_EXECUTABLE_IMAGE

coff_machine:
    0x0000014c  IMAGE_FILE_MACHINE_I386
    0x00008664  IMAGE_FILE_MACHINE_AMD64
`, out.String())
}
