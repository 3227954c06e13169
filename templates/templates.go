package templates

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/browserwing/actionrunner/models"
)

// Param documents one template parameter.
type Param struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// Info describes a template for listings.
type Info struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"parameters"`
}

type template struct {
	info  Info
	build func(p params) []models.Action
}

var registry = map[string]template{
	"amazon_product_search": {
		info: Info{
			Name:        "amazon_product_search",
			Description: "Search Amazon products and extract details",
			Params: []Param{
				{Name: "search_query", Required: true},
				{Name: "max_results", Default: 20},
				{Name: "extract_reviews", Default: false},
			},
		},
		build: amazonProductSearch,
	},
	"google_search": {
		info: Info{
			Name:        "google_search",
			Description: "Perform Google search and extract results",
			Params: []Param{
				{Name: "search_query", Required: true},
				{Name: "max_results", Default: 10},
			},
		},
		build: googleSearch,
	},
	"linkedin_profile": {
		info: Info{
			Name:        "linkedin_profile",
			Description: "Extract LinkedIn profile information",
			Params:      []Param{{Name: "profile_url", Required: true}},
		},
		build: linkedinProfile,
	},
	"twitter_scrape": {
		info: Info{
			Name:        "twitter_scrape",
			Description: "Scrape tweets from a Twitter/X profile",
			Params: []Param{
				{Name: "username", Required: true},
				{Name: "max_tweets", Default: 10},
			},
		},
		build: twitterScrape,
	},
	"google_maps_business": {
		info: Info{
			Name:        "google_maps_business",
			Description: "Search and extract Google Maps business listings",
			Params: []Param{
				{Name: "search_query", Required: true},
				{Name: "location"},
			},
		},
		build: googleMapsBusiness,
	},
}

// List returns every template sorted by name.
func List() []Info {
	out := make([]Info, 0, len(registry))
	for _, t := range registry {
		out = append(out, t.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Build expands a template into actions. Unknown names, missing required
// parameters and malformed numbers are TemplateErrors.
func Build(name string, values map[string]any) ([]models.Action, error) {
	t, ok := registry[name]
	if !ok {
		return nil, models.NewError(models.KindTemplateError, "unknown template: %s", name)
	}

	p := params{values: values}
	for _, param := range t.info.Params {
		if param.Required && p.str(param.Name) == "" {
			return nil, models.NewError(models.KindTemplateError, "template %s requires parameter %s", name, param.Name)
		}
		if n, isInt := param.Default.(int); isInt {
			v, err := p.intOr(param.Name, n)
			if err != nil {
				return nil, models.WrapError(models.KindTemplateError, err, "template %s", name)
			}
			if v <= 0 {
				return nil, models.NewError(models.KindTemplateError, "template %s: %s must be positive", name, param.Name)
			}
		}
	}

	actions := t.build(p)
	for i := range actions {
		actions[i] = actions[i].Normalized()
	}
	return actions, nil
}

// DefaultActions is the smoke test run when no actions are given.
func DefaultActions() []models.Action {
	actions := []models.Action{
		{Type: models.ActionNavigate, Value: models.StringValue("https://example.com")},
		{Type: models.ActionGetTitle},
		{Type: models.ActionExtractText, Selector: "h1", Description: "Extract heading text"},
		{Type: models.ActionScreenshot},
	}
	for i := range actions {
		actions[i] = actions[i].Normalized()
	}
	return actions
}

type params struct {
	values map[string]any
}

func (p params) str(key string) string {
	v, ok := p.values[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (p params) intOr(key string, def int) (int, error) {
	v, ok := p.values[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, n)
		}
		return int(n), nil
	}
	s := p.str(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, s)
	}
	return n, nil
}

// mustInt is only called after Build validated the parameter.
func (p params) mustInt(key string, def int) int {
	n, _ := p.intOr(key, def)
	return n
}

func navigate(u string) models.Action {
	return models.Action{Type: models.ActionNavigate, Value: models.StringValue(u)}
}

func waitFor(selector string, timeoutMS int) models.Action {
	a := models.Action{Type: models.ActionWaitForElement, Selector: selector, SelectorType: models.SelectorCSS}
	if timeoutMS > 0 {
		a.Timeout = timeoutMS
	}
	return a
}

func evaluate(js, description string) models.Action {
	return models.Action{Type: models.ActionEvaluate, Value: models.StringValue(js), Description: description}
}

func screenshot() models.Action {
	return models.Action{Type: models.ActionScreenshot}
}

func amazonProductSearch(p params) []models.Action {
	const input = "input[name='field-keywords']"
	maxResults := p.mustInt("max_results", 20)
	return []models.Action{
		navigate("https://www.amazon.com"),
		{Type: models.ActionFill, Selector: input, SelectorType: models.SelectorCSS, Value: models.StringValue(p.str("search_query"))},
		{Type: models.ActionPressKey, Selector: input, SelectorType: models.SelectorCSS, Value: models.StringValue("Enter")},
		waitFor(".s-result-item[data-component-type='s-search-result']", 10000),
		evaluate(fmt.Sprintf(`() => {
    const products = [];
    const items = document.querySelectorAll('.s-result-item[data-component-type="s-search-result"]');
    Array.from(items).slice(0, %d).forEach(item => {
        const title = item.querySelector('h2 a span')?.textContent?.trim();
        const price = item.querySelector('.a-price .a-offscreen')?.textContent?.trim();
        const rating = item.querySelector('.a-icon-star-small .a-icon-alt')?.textContent?.trim();
        const reviews = item.querySelector('.a-size-base.s-underline-text')?.textContent?.trim();
        const url = item.querySelector('h2 a')?.href;
        const image = item.querySelector('.s-image')?.src;
        const asin = item.getAttribute('data-asin');
        products.push({ title, price, rating, reviews, url, image, asin });
    });
    return products;
}`, maxResults), "Extract product listings"),
		screenshot(),
	}
}

func googleSearch(p params) []models.Action {
	maxResults := p.mustInt("max_results", 10)
	return []models.Action{
		navigate("https://www.google.com/search?q=" + url.QueryEscape(p.str("search_query"))),
		waitFor("#search", 0),
		evaluate(fmt.Sprintf(`() => {
    const results = [];
    document.querySelectorAll('.g').forEach((item, index) => {
        if (index >= %d) return;
        const title = item.querySelector('h3')?.textContent;
        const url = item.querySelector('a')?.href;
        const description = item.querySelector('.VwiC3b')?.textContent;
        if (title && url) {
            results.push({ title, url, description });
        }
    });
    return results;
}`, maxResults), "Extract search results"),
		screenshot(),
	}
}

func linkedinProfile(p params) []models.Action {
	return []models.Action{
		navigate(p.str("profile_url")),
		waitFor(".pv-top-card", 15000),
		evaluate(`() => ({
    name: document.querySelector('.pv-top-card--list li')?.textContent?.trim(),
    headline: document.querySelector('.pv-top-card--list-bullet li')?.textContent?.trim(),
    location: document.querySelector('.pv-top-card--list-bullet .t-black--light')?.textContent?.trim(),
    connections: document.querySelector('.pv-top-card--list-bullet .t-bold')?.textContent?.trim(),
    about: document.querySelector('.pv-about__summary-text')?.textContent?.trim()
})`, "Extract profile card"),
		screenshot(),
	}
}

func twitterScrape(p params) []models.Action {
	maxTweets := p.mustInt("max_tweets", 10)
	username := strings.TrimPrefix(p.str("username"), "@")
	return []models.Action{
		navigate("https://twitter.com/" + url.PathEscape(username)),
		waitFor("article", 0),
		{Type: models.ActionScroll, Value: models.StringValue("1000")},
		{Type: models.ActionWait, Value: models.StringValue("2000")},
		evaluate(fmt.Sprintf(`() => {
    const tweets = [];
    document.querySelectorAll('article').forEach((article, index) => {
        if (index >= %d) return;
        const text = article.querySelector('[data-testid="tweetText"]')?.textContent;
        const time = article.querySelector('time')?.getAttribute('datetime');
        const likes = article.querySelector('[data-testid="like"]')?.textContent;
        const retweets = article.querySelector('[data-testid="retweet"]')?.textContent;
        const replies = article.querySelector('[data-testid="reply"]')?.textContent;
        tweets.push({ text, timestamp: time, likes, retweets, replies });
    });
    return tweets;
}`, maxTweets), "Extract tweets"),
		screenshot(),
	}
}

func googleMapsBusiness(p params) []models.Action {
	query := p.str("search_query")
	if location := p.str("location"); location != "" {
		query += " " + location
	}
	// Maps joins search terms with '+'
	path := strings.ReplaceAll(url.PathEscape(query), "%20", "+")
	return []models.Action{
		navigate("https://www.google.com/maps/search/" + path),
		waitFor("[role='article']", 0),
		{Type: models.ActionWait, Value: models.StringValue("3000")},
		evaluate(`() => {
    const businesses = [];
    document.querySelectorAll('[role="article"]').forEach((item, index) => {
        if (index >= 20) return;
        const name = item.querySelector('.fontHeadlineSmall')?.textContent;
        const rating = item.querySelector('.MW4etd')?.textContent;
        const reviews = item.querySelector('.UY7F9')?.textContent;
        const address = item.querySelector('.W4Efsd:nth-of-type(2)')?.textContent;
        const type = item.querySelector('.W4Efsd:first-of-type')?.textContent;
        const phone = item.querySelector('[data-tooltip="Copy phone number"]')?.textContent;
        businesses.push({ name, rating, reviews, address, type, phone });
    });
    return businesses;
}`, "Extract business listings"),
		screenshot(),
	}
}
