package accessgate

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/cccteam/accessgate/autherr"
	"github.com/cccteam/accessgate/gate"
	"github.com/cccteam/httpio"
	"github.com/cccteam/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/errors/v5"
)

// Proxy forwards /pocs/{poc}/api/* to the demo's microservice. State changing calls pass
// through the request gate, which matches page grants against the /pocs/{poc} page.
func (p *Portal) Proxy() http.HandlerFunc {
	return p.handle(func(w http.ResponseWriter, r *http.Request) error {
		poc := chi.URLParam(r, "poc")
		proxy, ok := p.proxies[poc]
		if !ok {
			return httpio.NewEncoder(w).ClientMessage(r.Context(), httpio.NewNotFoundMessagef("unknown demo %q", poc))
		}

		ctx := gate.WithPage(r.Context(), r.URL.Path)
		proxy.ServeHTTP(w, r.WithContext(ctx))

		return nil
	})
}

func (p *Portal) newProxy(target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			prefix := "/pocs/" + chi.URLParam(pr.In, "poc")
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, prefix)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")
		},
		Transport:    p.proxyGate.RoundTripper(p.transport),
		ErrorHandler: p.proxyError,
	}
}

func (p *Portal) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, autherr.ErrAccessDenied) {
		err = clientError(r.Context(), w, err)
		logger.Req(r).Infof("['%s']", strings.Join(httpio.Messages(err), "', '"))

		return
	}

	logger.Req(r).Error(writeMessage(w, http.StatusBadGateway, "The demo service is unavailable", errors.Wrap(err, "httputil.ReverseProxy")))
}
