package staticpage

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linuxos/internal/pkg/response"
)

// Page is an informational page served from a fixed template.
type Page struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Template string `json:"template"`
	// Legacy is the directory the page lived under on the old site.
	Legacy string `json:"-"`
}

func newPage(legacy, url string) Page {
	return Page{
		Name:     "page_" + url,
		URL:      "/" + url + "/",
		Template: "static/" + url + ".html",
		Legacy:   legacy,
	}
}

// Pages lists every static page with its legacy location.
var Pages = []Page{
	newPage("co_je_linux", "co-je-linux"),
	newPage("internet", "internet"),
	newPage("kancelaria", "kancelaria"),
	newPage("multimedia", "multimedia"),
	newPage("hry", "hry"),
	newPage("veda", "veda"),
	newPage("odkazy", "odkazy"),

	newPage("reklama", "reklama"),
	newPage("portal_podporte_nas", "portal-podporte-nas"),
	newPage("portal_vyvoj", "portal-vyvoj"),
	newPage("export", "export"),
	newPage("team", "team"),

	newPage("netscreens", "internet/screenshoty"),
	newPage("officescreens", "kancelaria/screenshoty"),
	newPage("mmscreens", "multimedia/screenshoty"),
	newPage("vedascreens", "veda/screenshoty"),
}

// Find returns the page served at url ("/veda/screenshoty/").
func Find(url string) (Page, bool) {
	for _, p := range Pages {
		if p.URL == url {
			return p, true
		}
	}
	return Page{}, false
}

// RegisterRoutes serves the page descriptors and permanent redirects from legacy URLs.
func RegisterRoutes(r gin.IRoutes) {
	for _, p := range Pages {
		page := p
		r.GET(page.URL, func(c *gin.Context) {
			response.Success(c, http.StatusOK, page)
		})
		r.GET("/"+page.Legacy+"/index.html", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, page.URL)
		})
	}
}

// LegacyTarget maps an old "/<legacy>/index.html" path to its page URL.
func LegacyTarget(path string) (string, bool) {
	legacy, ok := strings.CutSuffix(strings.TrimPrefix(path, "/"), "/index.html")
	if !ok {
		return "", false
	}
	for _, p := range Pages {
		if p.Legacy == legacy {
			return p.URL, true
		}
	}
	return "", false
}
