package storage_test

import (
	"context"
	b64 "encoding/base64"
	"io/ioutil"
	"net/http"
	"os"

	. "github.com/cear54/api-t-cuida/common/generator/mocks"
	. "github.com/cear54/api-t-cuida/common/storage"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// 1x1 transparent png
const pixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

var _ = Describe("Images", func() {

	It("should decode jpeg and png data uris", func() {
		decoded, extension, err := DecodeImage("data:image/png;base64," + pixel)
		Expect(err).To(BeNil())
		Expect(extension).To(Equal(".png"))
		raw, _ := b64.StdEncoding.DecodeString(pixel)
		Expect(decoded).To(Equal(raw))

		_, extension, err = DecodeImage("data:image/jpeg;base64," + pixel)
		Expect(err).To(BeNil())
		Expect(extension).To(Equal(".jpg"))
	})

	It("should reject other formats", func() {
		_, _, err := DecodeImage("data:image/gif;base64," + pixel)
		Expect(err).To(Equal(ErrUnsupportedFileFormat))
		_, _, err = DecodeImage(pixel)
		Expect(err).To(Equal(ErrUnsupportedFileFormat))
	})

	It("should reject broken base64", func() {
		_, _, err := DecodeImage("data:image/png;base64,!!!")
		Expect(err).To(Equal(ErrInvalidEncoding))
	})

	It("should tell uploads from object names", func() {
		Expect(IsEncodedImage("data:image/png;base64," + pixel)).To(BeTrue())
		Expect(IsEncodedImage("daycares/d1/children/c1/logs/2024-03-01/a.jpg")).To(BeFalse())
	})

	It("should build the daily log folder", func() {
		Expect(LogFolder("d1", "c1", "2024-03-01")).To(Equal("daycares/d1/children/c1/logs/2024-03-01"))
	})
})

var _ = Describe("Gcs", func() {

	var (
		storage             *GoogleStorage
		mockStringGenerator *MockStringGenerator
		ctx                 = context.Background()
	)

	BeforeEach(func() {
		bucketSa := os.Getenv("TCUIDA_TEST_BUCKET_SERVICE_ACCOUNT")
		bucketName := os.Getenv("TCUIDA_TEST_BUCKET_NAME")
		if bucketSa == "" || bucketName == "" {
			Skip("TCUIDA_TEST_BUCKET_SERVICE_ACCOUNT and TCUIDA_TEST_BUCKET_NAME are not set")
		}
		mockStringGenerator = &MockStringGenerator{}
		var err error
		storage, err = New(ctx, Options{
			CredentialsFile: bucketSa,
			BucketName:      bucketName,
		})
		Expect(err).To(BeNil())
		storage.StringGenerator = mockStringGenerator
	})

	Context("Store, Get and Delete", func() {

		var (
			image                             []byte
			storeError, getError, deleteError error
			uri                               string
			fileName                          string
			getResponse                       *http.Response
		)

		BeforeEach(func() {
			mockStringGenerator.On("GenerateObjectName", "tests", ".png").Return("tests/image1.png")

			image, _ = b64.StdEncoding.DecodeString(pixel)
			fileName, storeError = storage.Store(ctx, "data:image/png;base64,"+pixel, "tests")

			uri, getError = storage.Get(ctx, fileName)
			getResponse, _ = http.Get(uri)
			deleteError = storage.Delete(ctx, fileName)
		})

		// one round trip to keep the number of calls low
		It("should create, get and delete the image", func() {
			Expect(storeError).To(BeNil())
			Expect(fileName).To(Equal("tests/image1.png"))

			Expect(getError).To(BeNil())
			Expect(getResponse.StatusCode).To(Equal(http.StatusOK))
			b, _ := ioutil.ReadAll(getResponse.Body)
			Expect(b).To(Equal(image))

			Expect(deleteError).To(BeNil())
		})
	})
})
