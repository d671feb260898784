package openimage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseGenderResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		resp string
		want Gender
	}{
		{"male", GenderMale},
		{"Male.", GenderMale},
		{"  MALE\n", GenderMale},
		{"female", GenderFemale},
		{"FEMALE - long hair", GenderFemale},
		{"unknown", GenderUnknown},
		{"I cannot tell", GenderUnknown},
		{"", GenderUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.resp, func(t *testing.T) {
			t.Parallel()
			if got := ParseGenderResponse(tc.resp); got != tc.want {
				t.Errorf("ParseGenderResponse(%q) = %q, want %q", tc.resp, got, tc.want)
			}
		})
	}
}

func TestLLMGender_InferGender(t *testing.T) {
	t.Parallel()

	cls := &fakeClassifier{resp: "female"}
	g := &LLMGender{Classifier: cls}

	got, err := g.InferGender(context.Background(), "Ada Lovelace")
	if err != nil {
		t.Fatalf("InferGender() error = %v", err)
	}
	if got != GenderFemale {
		t.Errorf("InferGender() = %q, want female", got)
	}
	if len(cls.prompts) != 1 || !strings.Contains(cls.prompts[0], "'Ada Lovelace'") {
		t.Errorf("prompt = %q, want the name quoted", cls.prompts)
	}
	if cls.images[0] != nil {
		t.Errorf("text inference sent images: %v", cls.images[0])
	}
}

func TestLLMGender_InferGenderError(t *testing.T) {
	t.Parallel()

	g := &LLMGender{Classifier: &fakeClassifier{err: errors.New("llm down")}}
	got, err := g.InferGender(context.Background(), "Alan Turing")
	if err == nil {
		t.Fatal("InferGender() error = nil, want error")
	}
	if got != GenderUnknown {
		t.Errorf("InferGender() = %q, want unknown", got)
	}
}

func TestLLMGender_ClassifyGenderSendsDataURL(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t, "image/jpeg", makeJPEG(8, 8))
	cls := &fakeClassifier{resp: "MALE"}
	g := &LLMGender{Classifier: cls, Downloader: &Downloader{Client: srv.Client()}}

	got, err := g.ClassifyGender(context.Background(), srv.URL+"/thumb.jpg")
	if err != nil {
		t.Fatalf("ClassifyGender() error = %v", err)
	}
	if got != GenderMale {
		t.Errorf("ClassifyGender() = %q, want male", got)
	}
	if len(cls.images) != 1 || len(cls.images[0]) != 1 {
		t.Fatalf("images sent = %v, want one", cls.images)
	}
	if !strings.HasPrefix(cls.images[0][0].URL, "data:image/jpeg;base64,") {
		t.Errorf("image URL = %.40q, want data URL", cls.images[0][0].URL)
	}
}

func TestLLMGender_ClassifyGenderDownloadFailure(t *testing.T) {
	t.Parallel()

	srv := newImageServer(t, "text/html", []byte("<html></html>"))
	cls := &fakeClassifier{resp: "MALE"}
	g := &LLMGender{Classifier: cls, Downloader: &Downloader{Client: srv.Client()}}

	if _, err := g.ClassifyGender(context.Background(), srv.URL); err == nil {
		t.Error("ClassifyGender() error = nil, want download error")
	}
	if len(cls.prompts) != 0 {
		t.Errorf("classifier called %d times, want 0", len(cls.prompts))
	}
}
