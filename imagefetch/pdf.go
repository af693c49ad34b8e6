package imagefetch

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// largestPDFImage unpacks the embedded images of a PDF and returns the
// largest one as a data URI. Scanned flyers usually carry the photo of
// interest as the biggest XObject; decorations and logos are smaller.
func largestPDFImage(pdf []byte) (string, error) {
	conf := model.NewDefaultConfiguration()
	pageImages, err := api.ExtractImagesRaw(bytes.NewReader(pdf), nil, conf)
	if err != nil {
		return "", fmt.Errorf("%w: pdf unpack: %v", ErrNetwork, err)
	}

	var best []byte
	var bestType string
	for _, images := range pageImages {
		for _, img := range images {
			data, err := io.ReadAll(img)
			if err != nil {
				continue
			}
			if len(data) > len(best) {
				best = data
				bestType = img.FileType
			}
		}
	}
	if len(best) == 0 {
		return "", fmt.Errorf("%w: pdf contains no images", ErrNetwork)
	}

	return DataURI(pdfImageMIME(bestType), best), nil
}

func pdfImageMIME(fileType string) string {
	switch fileType {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
