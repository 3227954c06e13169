package browser

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/browserwing/actionrunner/config"
	"github.com/browserwing/actionrunner/executor"
	"github.com/browserwing/actionrunner/models"
	"github.com/browserwing/actionrunner/pkg/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/pkg/errors"
)

// Provisioner starts one browser per run.
type Provisioner struct {
	browser config.BrowserConfig
	proxy   config.ProxyConfig
	log     logger.Logger
}

func NewProvisioner(browser config.BrowserConfig, proxy config.ProxyConfig, log logger.Logger) *Provisioner {
	return &Provisioner{browser: browser, proxy: proxy, log: log}
}

// Launch starts a browser honouring opts and opens its single page. On
// failure the partially built session is still returned so the caller can
// close it.
func (p *Provisioner) Launch(ctx context.Context, opts models.LaunchOptions) (executor.Session, error) {
	engine := opts.EngineOrDefault()
	if engine != models.EngineChromium {
		return nil, models.NewError(models.KindLaunchFailure, "browser engine %q is not supported, use %q", engine, models.EngineChromium)
	}
	proxy, err := p.resolveProxy(opts.Proxy)
	if err != nil {
		return nil, models.WrapError(models.KindLaunchFailure, err, "invalid proxy settings")
	}

	s := &Session{log: p.log, remote: p.browser.ControlURL != ""}
	if err := p.start(ctx, s, opts, proxy); err != nil {
		p.log.Error(ctx, "Browser launch failed: %v", err)
		return s, models.WrapError(models.KindLaunchFailure, err, "failed to launch browser")
	}
	p.log.Info(ctx, "Browser ready (headless=%v, stealth=%v, proxy=%v)", opts.IsHeadless(), opts.Stealth, proxy != nil)
	return s, nil
}

func (p *Provisioner) start(ctx context.Context, s *Session, opts models.LaunchOptions, proxy *proxyEndpoint) error {
	var controlURL string
	if s.remote {
		if proxy != nil {
			p.log.Warn(ctx, "Proxy flags cannot be applied to a remote browser, only credentials will be used")
		}
		u, err := launcher.ResolveURL(p.browser.ControlURL)
		if err != nil {
			return errors.Wrapf(err, "resolve control url %s", p.browser.ControlURL)
		}
		controlURL = u
	} else {
		l := p.newLauncher(opts, proxy)
		u, err := l.Launch()
		if err != nil {
			return errors.Wrap(err, "start browser process")
		}
		// only a started process is ours to kill
		s.launcher = l
		s.ownsProfile = p.browser.UserDataDir == ""
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return errors.Wrap(err, "connect to browser")
	}
	s.browser = browser

	var page *rod.Page
	var err error
	if opts.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return errors.Wrap(err, "open page")
	}
	s.page = page

	if proxy != nil && (proxy.username != "" || proxy.password != "") {
		if err := handleProxyAuth(page, proxy); err != nil {
			return errors.Wrap(err, "enable proxy authentication")
		}
	}
	if err := p.emulate(page, opts.Stealth); err != nil {
		return err
	}

	s.view = newPage(page, time.Duration(p.browser.NetworkIdleMS)*time.Millisecond)
	return nil
}

func (p *Provisioner) newLauncher(opts models.LaunchOptions, proxy *proxyEndpoint) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.IsHeadless()).
		Devtools(false).
		Leakless(false)
	if p.browser.BinPath != "" {
		l = l.Bin(p.browser.BinPath)
	}
	if p.browser.UserDataDir != "" {
		l = l.UserDataDir(p.browser.UserDataDir)
	}
	for _, arg := range p.browser.LaunchArgs {
		name, value, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if value == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), value)
		}
	}
	if proxy != nil {
		l = l.Proxy(proxy.server)
	}
	return l
}

// emulate applies the viewport, and in stealth mode the desktop identity.
func (p *Provisioner) emulate(page *rod.Page, stealthMode bool) error {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             p.browser.ViewportWidth,
		Height:            p.browser.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return errors.Wrap(err, "set viewport")
	}
	if !stealthMode {
		return nil
	}

	if _, err := page.EvalOnNewDocument(fingerprintJS); err != nil {
		return errors.Wrap(err, "install fingerprint script")
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      p.browser.UserAgent,
		AcceptLanguage: p.browser.Locale,
	}); err != nil {
		return errors.Wrap(err, "set user agent")
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: p.browser.Locale}).Call(page); err != nil {
		return errors.Wrap(err, "set locale")
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: p.browser.Timezone}).Call(page); err != nil {
		return errors.Wrap(err, "set timezone")
	}
	return nil
}

// proxyEndpoint is a proxy server with its credentials split off, since
// --proxy-server accepts no userinfo.
type proxyEndpoint struct {
	server   string
	username string
	password string
}

func (p *Provisioner) resolveProxy(settings *models.ProxySettings) (*proxyEndpoint, error) {
	if settings == nil {
		return nil, nil
	}

	if settings.URL != "" {
		raw := settings.URL
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse proxy url %q", settings.URL)
		}
		if u.Host == "" {
			return nil, errors.Errorf("proxy url %q has no host", settings.URL)
		}
		ep := &proxyEndpoint{server: u.Scheme + "://" + u.Host}
		if u.User != nil {
			ep.username = u.User.Username()
			ep.password, _ = u.User.Password()
		}
		if settings.Username != "" {
			ep.username = settings.Username
		}
		if settings.Password != "" {
			ep.password = settings.Password
		}
		return ep, nil
	}

	if settings.UsePlatformProxy {
		if p.proxy.Hostname == "" {
			return nil, errors.New("platform proxy requested but no proxy hostname is configured")
		}
		return &proxyEndpoint{
			server:   "http://" + p.proxy.Hostname + ":" + strconv.Itoa(p.proxy.Port),
			username: platformProxyUsername(settings.Groups),
			password: p.proxy.Password,
		}, nil
	}
	return nil, nil
}

// platformProxyUsername selects proxy groups, or lets the platform pick.
func platformProxyUsername(groups []string) string {
	var kept []string
	for _, g := range groups {
		if g = strings.TrimSpace(g); g != "" {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		return "auto"
	}
	return "groups-" + strings.Join(kept, ",")
}

// handleProxyAuth answers every proxy challenge for the page's lifetime.
func handleProxyAuth(page *rod.Page, proxy *proxyEndpoint) error {
	wait := page.EachEvent(
		func(e *proto.FetchRequestPaused) {
			_ = proto.FetchContinueRequest{RequestID: e.RequestID}.Call(page)
		},
		func(e *proto.FetchAuthRequired) {
			_ = proto.FetchContinueWithAuth{
				RequestID: e.RequestID,
				AuthChallengeResponse: &proto.FetchAuthChallengeResponse{
					Response: proto.FetchAuthChallengeResponseResponseProvideCredentials,
					Username: proxy.username,
					Password: proxy.password,
				},
			}.Call(page)
		},
	)
	go wait()
	return proto.FetchEnable{HandleAuthRequests: true}.Call(page)
}

// Session owns the browser process, the connection and the page of one run.
type Session struct {
	mu          sync.Mutex
	log         logger.Logger
	launcher    *launcher.Launcher
	browser     *rod.Browser
	page        *rod.Page
	view        *Page
	remote      bool
	ownsProfile bool
	closed      bool
}

func (s *Session) Page() executor.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil
	}
	return s.view
}

// Close tears down in reverse order of acquisition. Failures are logged and
// the first one is returned; later calls do nothing.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var first error
	keep := func(err error, what string) {
		if err == nil {
			return
		}
		s.log.Warn(ctx, "Error when closing %s: %v", what, err)
		if first == nil {
			first = errors.Wrapf(err, "close %s", what)
		}
	}

	if s.page != nil {
		keep(s.page.Close(), "page")
	}
	if s.browser != nil && !s.remote {
		keep(s.browser.Close(), "browser")
	}
	if s.launcher != nil {
		s.launcher.Kill()
		if s.ownsProfile {
			s.launcher.Cleanup()
		}
		s.log.Info(ctx, "Browser process terminated")
	}

	s.page, s.browser, s.launcher, s.view = nil, nil, nil, nil
	return first
}
