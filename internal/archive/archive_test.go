package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ppiankov/orderprint/internal/order"
	"github.com/ppiankov/orderprint/internal/receipt"
)

type object struct {
	key, contentType string
	body             []byte
}

type fakeS3 struct {
	puts   []object
	failOn string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if f.failOn != "" && strings.HasSuffix(key, f.failOn) {
		return nil, errors.New("access denied")
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, object{key: key, contentType: aws.ToString(in.ContentType), body: body})
	return &s3.PutObjectOutput{}, nil
}

func printed() order.Printed {
	o := order.Default(order.SquarePickup)
	o.Customer = "Grace Hopper"
	o.Items = []order.LineItem{{Label: "1x Dozen Box"}}
	o.TotalItems = "1"
	return order.Printed{
		Token:     "8f14e45f",
		Source:    "square",
		MessageID: "SQ_PRINT/001.eml",
		Extractor: "square-text",
		Order:     o,
		Data:      receipt.Render(o),
		QueuedAt:  time.Date(2026, 10, 17, 23, 30, 0, 0, time.UTC),
	}
}

func TestRecordUploadsJobAndOrder(t *testing.T) {
	fake := &fakeS3{}
	s := &Store{client: fake, bucket: "receipts", prefix: "shop-1"}
	p := printed()

	if err := s.Record(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if len(fake.puts) != 2 {
		t.Fatalf("puts = %d", len(fake.puts))
	}

	bin := fake.puts[0]
	if bin.key != "shop-1/2026-10-17/8f14e45f.bin" {
		t.Errorf("bin key = %q", bin.key)
	}
	if bin.contentType != receipt.MediaType || string(bin.body) != string(p.Data) {
		t.Errorf("bin = %q %q", bin.contentType, bin.body)
	}

	meta := fake.puts[1]
	if meta.key != "shop-1/2026-10-17/8f14e45f.json" {
		t.Errorf("json key = %q", meta.key)
	}
	var got map[string]any
	if err := json.Unmarshal(meta.body, &got); err != nil {
		t.Fatal(err)
	}
	if got["token"] != "8f14e45f" || got["extractor"] != "square-text" {
		t.Errorf("meta = %v", got)
	}
	if _, ok := got["Data"]; ok {
		t.Error("job bytes should not be embedded in the json object")
	}
}

func TestKeyWithoutPrefix(t *testing.T) {
	s := &Store{bucket: "b"}
	if got := s.Key(printed()); got != "2026-10-17/8f14e45f" {
		t.Errorf("key = %q", got)
	}
}

func TestRecordStopsOnFailure(t *testing.T) {
	fake := &fakeS3{failOn: ".bin"}
	s := &Store{client: fake, bucket: "receipts"}
	err := s.Record(context.Background(), printed())
	if err == nil || !strings.Contains(err.Error(), "archive: upload") {
		t.Errorf("err = %v", err)
	}
	if len(fake.puts) != 0 {
		t.Errorf("puts = %d", len(fake.puts))
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), "us-east-1", "", ""); err == nil {
		t.Error("expected error for empty bucket")
	}
}
