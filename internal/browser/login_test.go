package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLoginURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"portal article page", "https://myservice.example.com/kb_view.do?sysparm_article=KB0010001", false},
		{"explicit login path", "https://myservice.example.com/login.do", true},
		{"saml endpoint", "https://myservice.example.com/saml_redirect", true},
		{"azure ad", "https://login.microsoftonline.com/common/oauth2/authorize", true},
		{"okta hop", "https://corp.okta.com/app/servicenow", true},
		{"adfs", "https://adfs.corp.example.com/adfs/ls/", true},
		{"signin marker", "https://idp.example.com/signin?next=portal", true},
		{"auth in path", "https://myservice.example.com/auth_redirect.do", true},
		{"uppercase still matches", "https://myservice.example.com/LOGIN", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLoginURL(tt.url))
		})
	}
}
