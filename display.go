package main

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/config"
	"github.com/bob-anderson-ok/FresnelArrayDiffraction/pipeline"
)

// showResults opens the diffraction image, the mask and the profile plot and blocks until
// the main window is closed.
func showResults(params *config.Params, res *pipeline.Result) {
	size := float32(params.WindowSizePixels)

	// We supply an ID because fyne wants one for the preferences API
	myApp := app.NewWithID("com.gmail.ok.anderson.bob.fresnelarray")

	winTitle := params.Title
	if winTitle == "" {
		winTitle = fmt.Sprintf("Fresnel array diffraction at %.4g m (8 bit grayscale)", res.Distance)
	}
	w := myApp.NewWindow(winTitle)
	w.SetPadded(false)
	w.CenterOnScreen()
	w.SetContent(container.NewStack(fillImage(res.CutView)))
	w.Resize(fyne.NewSize(size, size))
	w.Show()

	w2 := myApp.NewWindow("Fresnel array")
	w2.SetContent(container.NewStack(fillImage(res.MaskView)))
	w2.Resize(fyne.NewSize(size/2, size/2))
	w2.Show()

	if res.ProfileView != nil {
		plotImg := fillImage(res.ProfileView)
		plotImg.SetMinSize(fyne.NewSize(800, 400))

		w3 := myApp.NewWindow("Intensity profile")
		w3.SetContent(container.NewCenter(plotImg))
		w3.Resize(fyne.NewSize(850, 450))
		w3.Show()
	}

	w.ShowAndRun()
}

func fillImage(img image.Image) *canvas.Image {
	c := canvas.NewImageFromImage(img)
	c.FillMode = canvas.ImageFillContain
	return c
}
