package inquiry

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
)

func dispatcher() *Dispatcher {
	return New(config.InquiryConfig{Domain: "wa.me", Recipient: "916351541231"})
}

func TestBuildInquiryLink(t *testing.T) {
	tests := []struct {
		name  string
		model string
		price string
		want  string
	}{
		{
			name:  "model and price",
			model: "Dell 5420",
			price: "45000",
			want:  "https://wa.me/916351541231?text=I%27m%20interested%20in%20the%20Dell%205420%20priced%20at%2045000",
		},
		{
			name:  "no price",
			model: "HP 840",
			want:  "https://wa.me/916351541231?text=I%27m%20interested%20in%20the%20HP%20840",
		},
		{
			name:  "reserved characters are encoded",
			model: "A&B #1",
			price: "₹45,000",
			want:  "https://wa.me/916351541231?text=I%27m%20interested%20in%20the%20A%26B%20%231%20priced%20at%20%E2%82%B945%2C000",
		},
	}
	d := dispatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.BuildInquiryLink(tt.model, tt.price))
		})
	}
}

func TestBuildInquiryLinkDecodesBack(t *testing.T) {
	link := dispatcher().BuildInquiryLink("ThinkPad T14 (Gen 2)", "52,500")
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/916351541231", u.Path)
	assert.Equal(t, "I'm interested in the ThinkPad T14 (Gen 2) priced at 52,500", u.Query().Get("text"))
}

func TestServeHTTPRedirects(t *testing.T) {
	d := dispatcher()
	req := httptest.NewRequest(http.MethodGet, "/inquire?model=Dell+5420&price=45000", nil)
	rr := httptest.NewRecorder()

	d.ServeHTTP(rr, req)

	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, d.BuildInquiryLink("Dell 5420", "45000"), rr.Header().Get("Location"))
}

func TestServeHTTPRequiresModel(t *testing.T) {
	rr := httptest.NewRecorder()
	dispatcher().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/inquire?price=1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
