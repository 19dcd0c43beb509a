//go:build !tesseract

package ocr

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTesseractStub(t *testing.T) {
	Convey("Given a build without libtesseract", t, func() {
		_, err := Open(Settings{Backend: BackendTesseract}, nil)

		Convey("Then opening the backend fails clearly", func() {
			So(errors.Is(err, ErrBackendUnavailable), ShouldBeTrue)
		})
	})
}
