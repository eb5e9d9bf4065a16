package gcs

import "testing"

func testClient() *Client {
	return &Client{
		bucketName: "legal-docs",
		prefix:     "cases",
		publicHost: "https://storage.googleapis.com",
	}
}

func TestObjectName(t *testing.T) {
	c := testClient()
	if got := c.ObjectName("smith", "brief_o.pdf"); got != "cases/smith/brief_o.pdf" {
		t.Fatalf("ObjectName = %q", got)
	}
	c.prefix = ""
	if got := c.ObjectName("", "brief_o.pdf"); got != "brief_o.pdf" {
		t.Fatalf("ObjectName without prefix = %q", got)
	}
}

func TestPublicURLEscapesSegments(t *testing.T) {
	c := testClient()
	got := c.PublicURL("cases/smith jones/brief_o.pdf")
	want := "https://storage.googleapis.com/legal-docs/cases/smith%20jones/brief_o.pdf"
	if got != want {
		t.Fatalf("PublicURL = %q, want %q", got, want)
	}
}

func TestObjectFromURLRoundTrip(t *testing.T) {
	c := testClient()
	object := "cases/smith jones/brief_o.pdf"
	url := c.PublicURL(object)

	decoded, ok := c.objectFromURL(url)
	if !ok || decoded != object {
		t.Fatalf("objectFromURL(%q) = %q ok=%v", url, decoded, ok)
	}

	if _, ok := c.objectFromURL("https://example.com/other-bucket/file.pdf"); ok {
		t.Fatal("foreign URL must not resolve")
	}
}
