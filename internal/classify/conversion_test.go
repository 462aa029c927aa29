package classify

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testPicture() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 120, B: uint8(y * 30), A: 255})
		}
	}
	return img
}

func testJPEG() []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, testPicture(), nil)).To(Succeed())
	return buf.Bytes()
}

func testPNG() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testPicture())).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("NormalizeJPEG", func() {
	var (
		input       []byte
		contentType string
		output      []byte
		err         error
	)

	JustBeforeEach(func() {
		output, err = NormalizeJPEG(input, contentType)
	})

	When("the image is already JPEG", func() {
		BeforeEach(func() {
			input = testJPEG()
			contentType = "image/jpeg"
		})

		It("should pass the bytes through", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(Equal(input))
		})
	})

	When("the image is PNG", func() {
		BeforeEach(func() {
			input = testPNG()
			contentType = "image/png"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should re-encode as JPEG", func() {
			Expect(isJPEG(output)).To(BeTrue())
			_, decodeErr := jpeg.Decode(bytes.NewReader(output))
			Expect(decodeErr).NotTo(HaveOccurred())
		})
	})

	When("the image is empty", func() {
		BeforeEach(func() {
			input = nil
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("image is empty")))
		})
	})

	When("the data is not an image", func() {
		BeforeEach(func() {
			input = []byte("definitely not an image")
			contentType = "application/octet-stream"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("should detect the ftyp heic brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("should reject short data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})

	It("should reject other brands", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypisom0000")...)
		Expect(isHEICFormat(data)).To(BeFalse())
	})
})

var _ = Describe("ExtractGPS", func() {
	It("should report no location for an image without EXIF", func() {
		_, _, ok := ExtractGPS(testJPEG())
		Expect(ok).To(BeFalse())
	})

	It("should report no location for arbitrary bytes", func() {
		_, _, ok := ExtractGPS([]byte("Exif\x00\x00garbage"))
		Expect(ok).To(BeFalse())
	})
})
