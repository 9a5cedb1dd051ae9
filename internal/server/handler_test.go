package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	v1 "github.com/FineUploader/go-s3-server/api/v1"
	"github.com/FineUploader/go-s3-server/internal/auth"
	"github.com/FineUploader/go-s3-server/internal/config"
	"github.com/FineUploader/go-s3-server/internal/policy"
	"github.com/FineUploader/go-s3-server/internal/signer"
	"github.com/FineUploader/go-s3-server/internal/verify"
)

func TestHandler(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Handler")
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) HeadSize(ctx context.Context, bucket, key string) (int64, error) {
	args := m.Called(ctx, bucket, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *mockObjectStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, ttl)
	return args.String(0), args.Error(1)
}

var _ = Describe("Handler", func() {
	var (
		store *mockObjectStore
		hnd   *handler
	)

	BeforeEach(func() {
		legacy, err := signer.NewStringSigner("top-secret")
		Expect(err).NotTo(HaveOccurred())
		v4, err := signer.NewDerivedKeySigner("top-secret")
		Expect(err).NotTo(HaveOccurred())

		store = &mockObjectStore{}
		hnd = &handler{
			auth: &auth.Authorizer{
				Policies: policy.Validator{Bucket: "mybucket", MaxSize: 104857600},
				Host:     "mybucket.s3.amazonaws.com",
				Legacy:   legacy,
				V4:       v4,
			},
			verifier: &verify.Verifier{Store: store, MaxSize: 104857600},
			store:    store,
			bucket:   "mybucket",
			log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		}
	})

	Describe("POST /s3/signature", func() {
		post := func(target string, body []byte) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
			rr := httptest.NewRecorder()
			hnd.handleSignature(rr, req)
			return rr
		}

		It("signs a valid legacy policy", func() {
			body := []byte(`{"expiration":"2038-01-01T00:00:00.000Z","conditions":[{"bucket":"mybucket"},["content-length-range","0","104857600"]]}`)
			rr := post("/s3/signature", body)

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

			var resp v1.SignatureResponse
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Invalid).To(BeFalse())
			Expect(resp.Policy).NotTo(BeEmpty())
			Expect(resp.Signature).NotTo(BeEmpty())
		})

		It("signs a valid v4 REST header block", func() {
			block := "AWS4-HMAC-SHA256\n20240101T000000Z\n20240101/us-east-1/s3/aws4_request\n" +
				"PUT\n/photo.jpg\n\nhost:mybucket.s3.amazonaws.com\n\nhost\nUNSIGNED-PAYLOAD"
			body, _ := json.Marshal(v1.SignatureRequest{Headers: block})
			rr := post("/s3/signature?v4=true", body)

			var resp v1.SignatureResponse
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Invalid).To(BeFalse())
			Expect(resp.Signature).To(MatchRegexp("^[0-9a-f]{64}$"))
			Expect(resp.Policy).To(BeEmpty())
		})

		DescribeTable("rejections are HTTP 200 with an invalid flag",
			func(target string, body string) {
				rr := post(target, []byte(body))
				Expect(rr.Code).To(Equal(http.StatusOK))

				var resp v1.SignatureResponse
				Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Invalid).To(BeTrue())
				Expect(resp.Signature).To(BeEmpty())
				Expect(resp.Policy).To(BeEmpty())
			},
			Entry("malformed JSON body", "/s3/signature", `{"conditions":`),
			Entry("policy for the wrong bucket", "/s3/signature",
				`{"conditions":[{"bucket":"evilbucket"},["content-length-range","0","104857600"]]}`),
			Entry("v4 block for a hostile host", "/s3/signature?v4=true",
				`{"headers":"AWS4-HMAC-SHA256\n20240101T000000Z\n20240101/us-east-1/s3/aws4_request\nhost:evil.example.com"}`),
			Entry("legacy block without the expected bucket", "/s3/signature",
				`{"headers":"PUT\n/otherbucket/photo.jpg"}`),
		)
	})

	Describe("POST /s3/success", func() {
		post := func(body v1.UploadSuccessRequest) *httptest.ResponseRecorder {
			bs, _ := json.Marshal(body)
			req := httptest.NewRequest(http.MethodPost, "/s3/success", bytes.NewReader(bs))
			rr := httptest.NewRecorder()
			hnd.handleUploadSuccess(rr, req)
			return rr
		}

		It("returns a temporary link for an object within the limit", func() {
			store.On("HeadSize", mock.Anything, "mybucket", "k1").Return(int64(100), nil).Once()
			store.On("PresignGet", mock.Anything, "mybucket", "k1", verify.LinkTTL).
				Return("https://signed/get", nil).Once()

			rr := post(v1.UploadSuccessRequest{Bucket: "mybucket", Key: "k1", Name: "photo.png"})
			Expect(rr.Code).To(Equal(http.StatusOK))

			var resp v1.UploadSuccessResponse
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.TempLink).To(Equal("https://signed/get"))
			Expect(resp.ThumbnailURL).To(Equal("https://signed/get"))
			store.AssertExpectations(GinkgoT())
		})

		It("deletes an oversized object and flags preventRetry", func() {
			store.On("HeadSize", mock.Anything, "mybucket", "k1").Return(int64(104857601), nil).Once()
			store.On("Delete", mock.Anything, "mybucket", "k1").Return(nil).Once()

			rr := post(v1.UploadSuccessRequest{Bucket: "mybucket", Key: "k1", Name: "big.bin"})
			Expect(rr.Code).To(Equal(http.StatusInternalServerError))

			var resp v1.ErrorResponse
			Expect(json.Unmarshal(rr.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.PreventRetry).To(BeTrue())
			store.AssertNumberOfCalls(GinkgoT(), "Delete", 1)
		})

		It("maps backend failures to 502", func() {
			store.On("HeadSize", mock.Anything, "mybucket", "k1").
				Return(int64(0), context.DeadlineExceeded).Once()

			rr := post(v1.UploadSuccessRequest{Bucket: "mybucket", Key: "k1"})
			Expect(rr.Code).To(Equal(http.StatusBadGateway))
		})

		It("rejects an unexpected bucket", func() {
			rr := post(v1.UploadSuccessRequest{Bucket: "evilbucket", Key: "k1"})
			Expect(rr.Code).To(Equal(http.StatusBadRequest))
			store.AssertNotCalled(GinkgoT(), "HeadSize", mock.Anything, mock.Anything, mock.Anything)
		})
	})

	Describe("delete requests", func() {
		It("handles DELETE with query addressing", func() {
			store.On("Delete", mock.Anything, "mybucket", "k1").Return(nil).Once()

			req := httptest.NewRequest(http.MethodDelete, "/s3/delete?bucket=mybucket&key=k1", nil)
			rr := httptest.NewRecorder()
			hnd.handleDelete(rr, req)

			Expect(rr.Code).To(Equal(http.StatusNoContent))
			store.AssertExpectations(GinkgoT())
		})

		It("handles the POST method-override form", func() {
			store.On("Delete", mock.Anything, "mybucket", "k1").Return(nil).Once()

			bs, _ := json.Marshal(v1.DeleteObjectRequest{Bucket: "mybucket", Key: "k1", Method: "DELETE"})
			req := httptest.NewRequest(http.MethodPost, "/s3/delete", bytes.NewReader(bs))
			rr := httptest.NewRecorder()
			hnd.handleDelete(rr, req)

			Expect(rr.Code).To(Equal(http.StatusNoContent))
		})

		It("rejects a POST without the override field", func() {
			bs, _ := json.Marshal(v1.DeleteObjectRequest{Bucket: "mybucket", Key: "k1"})
			req := httptest.NewRequest(http.MethodPost, "/s3/delete", bytes.NewReader(bs))
			rr := httptest.NewRecorder()
			hnd.handleDelete(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
			store.AssertNotCalled(GinkgoT(), "Delete", mock.Anything, mock.Anything, mock.Anything)
		})

		It("rejects an unexpected bucket", func() {
			req := httptest.NewRequest(http.MethodDelete, "/s3/delete?bucket=evilbucket&key=k1", nil)
			rr := httptest.NewRecorder()
			hnd.handleDelete(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps backend failures to 502", func() {
			store.On("Delete", mock.Anything, "mybucket", "k1").
				Return(context.DeadlineExceeded).Once()

			req := httptest.NewRequest(http.MethodDelete, "/s3/delete?bucket=mybucket&key=k1", nil)
			rr := httptest.NewRecorder()
			hnd.handleDelete(rr, req)

			Expect(rr.Code).To(Equal(http.StatusBadGateway))
		})
	})
})

var _ = Describe("NewRouter", func() {
	It("refuses to start without a signing secret", func() {
		_, err := NewRouter(&config.Config{Bucket: "mybucket"}, &mockObjectStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(err).To(MatchError(signer.ErrEmptySecret))
	})

	It("routes the three endpoints", func() {
		r, err := NewRouter(&config.Config{
			ClientSecretKey: "top-secret",
			Bucket:          "mybucket",
			Host:            "mybucket.s3.amazonaws.com",
		}, &mockObjectStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/s3/signature", bytes.NewReader([]byte(`{}`)))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusOK))

		req = httptest.NewRequest(http.MethodGet, "/s3/signature", nil)
		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusMethodNotAllowed))
	})
})
