// Package main provides the readpe GUI viewer.
package main

import (
	"bytes"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/pkg/errors"

	"github.com/ZacharyZcR/readpe/internal/cli"
	"github.com/ZacharyZcR/readpe/internal/flags"
	"github.com/ZacharyZcR/readpe/internal/pe"
)

func main() {
	myApp := app.New()
	myWindow := myApp.NewWindow("readpe - PE header viewer")
	myWindow.Resize(fyne.NewSize(900, 700))

	filePathEntry := widget.NewEntry()
	filePathEntry.SetPlaceHolder("Choose a PE file...")

	output := widget.NewMultiLineEntry()
	output.SetPlaceHolder("Decoded headers appear here...")
	output.TextStyle = fyne.TextStyle{Monospace: true}
	output.Disable()

	statusLabel := widget.NewLabel("Ready")

	var sections []pe.SectionOffsetInfo
	sectionList := widget.NewList(
		func() int { return len(sections) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			s := sections[id]
			obj.(*widget.Label).SetText(fmt.Sprintf("%d  %-8s 0x%x", s.Index, s.Name, s.Offset))
		},
	)

	fileButton := widget.NewButton("Open", func() {
		dialog.ShowFileOpen(func(file fyne.URIReadCloser, err error) {
			if err != nil || file == nil {
				return
			}
			defer func() { _ = file.Close() }()
			filePathEntry.SetText(file.URI().Path())
		}, myWindow)
	})

	decodeButton := widget.NewButton("Decode", func() {
		if filePathEntry.Text == "" {
			dialog.ShowError(errors.New("choose a PE file first"), myWindow)
			return
		}

		statusLabel.SetText("Decoding...")
		path := filePathEntry.Text
		go func() {
			result, err := decodeFile(path)
			fyne.Do(func() {
				output.SetText(result.text)
				sections = result.sections
				sectionList.Refresh()
				if err != nil {
					dialog.ShowError(err, myWindow)
					statusLabel.SetText("Decoding failed")
					return
				}
				statusLabel.SetText(fmt.Sprintf("Decoded %s (%s)", path, result.kind))
			})
		}()
	})

	fileBox := container.NewBorder(nil, nil, nil, fileButton, filePathEntry)

	sectionBox := container.NewBorder(
		widget.NewLabel("Section headers:"),
		nil, nil, nil,
		sectionList,
	)

	mainContent := container.NewBorder(
		container.NewVBox(
			widget.NewLabel("PE file:"),
			fileBox,
			widget.NewSeparator(),
			decodeButton,
		),
		container.NewVBox(
			widget.NewSeparator(),
			statusLabel,
		),
		nil,
		container.NewGridWrap(fyne.NewSize(240, 600), sectionBox),
		container.NewVScroll(output),
	)

	myWindow.SetContent(mainContent)
	myWindow.ShowAndRun()
}

type decodeResult struct {
	text     string
	kind     string
	sections []pe.SectionOffsetInfo
}

// decodeFile renders the text report of path. On a decoding failure the
// headers before it are still returned.
func decodeFile(path string) (decodeResult, error) {
	img, err := pe.Load(path)
	if err != nil {
		return decodeResult{}, err
	}

	var buf bytes.Buffer
	reporter := cli.NewReporter(&buf, flags.Default())
	reporter.SetColor(false)

	headers, err := reporter.Report(img, pe.Options{})
	result := decodeResult{text: buf.String(), kind: img.Kind()}
	if headers != nil {
		result.sections = headers.Offsets().Sections
	}
	return result, err
}
