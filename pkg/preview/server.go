// Package preview serves the rendered document over HTTP so a map can
// be checked in a browser right after rendering, or published on a
// small box with automatic certificates.
package preview

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// Server exposes one rendered SVG file.
type Server struct {
	SVGPath string
	Version string
	Logf    func(string, ...any)
}

// Handler builds the route table: the document itself at /map.svg, a
// one-line HTML wrapper at /, and a liveness probe via HEAD.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/map.svg", func(w http.ResponseWriter, r *http.Request) {
		raw, err := os.ReadFile(s.SVGPath)
		if err != nil {
			http.Error(w, "document not rendered yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(raw)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>Activity Heatmap</title></head>`+
			`<body style="margin:0"><img src="/map.svg" style="width:100%%"></body></html>`)
	})
	return s.withServerHeader(mux)
}

// withServerHeader stamps the Server header on every response and
// answers HEAD / immediately so monitoring can probe liveness without a
// body.
func (s *Server) withServerHeader(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "activity-heatmap/"+s.Version)
		if r.Method == http.MethodHead && r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// ListenPlain serves HTTP on the given port.  Blocks until the listener
// fails.
func (s *Server) ListenPlain(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.Logf("preview server listening on %s", addr)
	return (&http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}).ListenAndServe()
}

// ListenWithDomain runs the public setup:
//   - :80  — ACME HTTP-01 challenges plus a redirect to https
//   - :443 — HTTPS with automatic Let's Encrypt certificates
//
// When autocert cannot issue for a host (bare IP, odd SNI) the server
// falls back to the domain certificate once one exists, instead of
// failing the handshake.
func (s *Server) ListenWithDomain(domain string) error {
	certMgr := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache("certs"),
		HostPolicy: func(ctx context.Context, host string) error {
			if host == domain || host == "www."+domain {
				return nil
			}
			if net.ParseIP(host) != nil {
				return nil
			}
			return errors.New("acme/autocert: host not configured")
		},
	}

	go func() {
		mux80 := http.NewServeMux()
		mux80.Handle("/.well-known/acme-challenge/", certMgr.HTTPHandler(nil))
		mux80.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			target := "https://" + domain + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusMovedPermanently)
		})

		s.Logf("http server (ACME+redirect) on :80")
		if err := (&http.Server{
			Addr:              ":80",
			Handler:           mux80,
			ReadHeaderTimeout: 10 * time.Second,
		}).ListenAndServe(); err != nil {
			s.Logf("http server error: %v", err)
		}
	}()

	tlsCfg := certMgr.TLSConfig()

	// Fallback certificate for IP connects and unknown SNI.
	var defaultCert *tls.Certificate
	go func() {
		for defaultCert == nil {
			if c, err := certMgr.GetCertificate(&tls.ClientHelloInfo{ServerName: domain}); err == nil {
				defaultCert = c
			}
			time.Sleep(time.Minute)
		}
	}()
	tlsCfg.GetCertificate = func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
		c, err := certMgr.GetCertificate(chi)
		if err == nil {
			return c, nil
		}
		if defaultCert != nil {
			return defaultCert, nil
		}
		return nil, err
	}

	s.Logf("https server for %s on :443", domain)
	return (&http.Server{
		Addr:              ":443",
		Handler:           s.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}).ListenAndServeTLS("", "")
}
