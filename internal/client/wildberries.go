package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"

	"github.com/SergeVo/WB-price-tracker/internal/misc"
)

var ErrWildberries = errors.New("Wildberries error")
var ErrWildberriesProductNotFound = errors.New("Wildberries product not found")

const wildberriesCardAPIURL = "https://card.wb.ru/cards/detail?" +
	"nm=%s&curr=rub&dest=-1257786&" +
	"regions=80,38,83,4,64,33,68,70,69,30,86,75,40,1,66,110,22,31,48,71,114&spp=0"

const wildberriesCacheTTL = 5 * time.Minute

var wildberriesCatalogRe = regexp.MustCompile(`/catalog/(\d+)/`)

type wildberriesCardResponse struct {
	Data *wildberriesCardResponseData `json:"data"`
}

type wildberriesCardResponseData struct {
	Products []wildberriesCardProduct `json:"products"`
}

type wildberriesCardProduct struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	SalePriceU int     `json:"salePriceU"`
	Rating     float64 `json:"rating"`
	Feedbacks  int     `json:"feedbacks"`
}

// WildberriesProduct is a normalized product record. Price is in whole
// rubles, truncated from the kopeck value the card API reports.
type WildberriesProduct struct {
	Article   string  `json:"article"`
	Name      string  `json:"name"`
	Price     int     `json:"price"`
	Brand     string  `json:"brand"`
	Rating    float64 `json:"rating"`
	Feedbacks int     `json:"feedbacks"`
}

// IsWildberriesURL reports whether the URL points at the wildberries.ru
// catalog.
func IsWildberriesURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false
	}
	host := strings.ToLower(parsedURL.Host)
	return host == "www.wildberries.ru" || host == "wildberries.ru"
}

// WildberriesArticleFromURL extracts the numeric article from a catalog
// URL, either from the /catalog/<id>/ path segment or from a trailing
// all-digit segment.
func WildberriesArticleFromURL(urlStr string) (string, bool) {
	if m := wildberriesCatalogRe.FindStringSubmatch(urlStr); m != nil {
		return m[1], true
	}
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", false
	}
	sp := strings.Split(strings.TrimSuffix(parsedURL.Path, "/"), "/")
	last := sp[len(sp)-1]
	if _, err := strconv.ParseInt(last, 10, 64); err == nil {
		return last, true
	}
	return "", false
}

func (c Client) WildberriesGetProduct(ctx context.Context, urlStr string, useCache bool) (WildberriesProduct, error) {
	var p WildberriesProduct
	if !IsWildberriesURL(urlStr) {
		return p, errors.Wrapf(ErrWildberriesProductNotFound, "not a Wildberries URL: %s", urlStr)
	}
	article, ok := WildberriesArticleFromURL(urlStr)
	if !ok {
		return p, errors.Wrapf(ErrWildberriesProductNotFound, "error getting article from URL: %s", urlStr)
	}
	apiURL := fmt.Sprintf(wildberriesCardAPIURL, article)

	cacheKey := "WBG-" + article
	if useCache && c.Redis != nil {
		cached, err := c.Redis.Get(ctx, cacheKey).Result()
		if err == nil {
			c.Logger.Debugf("WildberriesGetProduct: Cache found, key: %s", cacheKey)
			if err = json.Unmarshal([]byte(cached), &p); err == nil {
				return p, nil
			}
			c.Logger.Errorf("WildberriesGetProduct: Error unmarshalling cache, key: %s, err: %v", cacheKey, err)
		} else if err != redis.Nil {
			c.Logger.Errorf("WildberriesGetProduct: Error getting Redis cache with key: %s, err: %v", cacheKey, err)
		}
	}

	req, err := newRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return p, errors.Wrapf(err, "error creating request from apiURL: %s", apiURL)
	}
	req.Header.Set("Referer", "https://www.wildberries.ru/")
	resp, err := c.Client.Do(req.WithContext(ctx))
	if err != nil {
		return p, errors.Wrapf(ErrWildberries, "error doing request to apiURL: %s, err: %v", apiURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.Logger.Errorf("WildberriesGetProduct: Error closing response body, apiURL: %s, err: %v", apiURL, err)
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, 300*1024))
	if err != nil {
		return p, errors.Wrapf(err, "error reading WildberriesCardAPI response body, apiURL: %s", apiURL)
	}
	if resp.StatusCode != http.StatusOK {
		return p, errors.Wrapf(ErrWildberries, "error status from WildberriesCardAPI, status: %s, body:\n%s",
			resp.Status, misc.StringLimit(string(body), 2000))
	}

	cardResp := wildberriesCardResponse{}
	if err = json.Unmarshal(body, &cardResp); err != nil {
		return p, errors.Wrapf(err, "error unmarshalling WildberriesCardAPI response body, apiURL: %s, body:\n%s",
			apiURL, misc.StringLimit(string(body), 2000))
	}
	if cardResp.Data == nil || len(cardResp.Data.Products) == 0 {
		return p, errors.Wrapf(ErrWildberriesProductNotFound, "empty product set from WildberriesCardAPI, apiURL: %s", apiURL)
	}

	cardProduct := cardResp.Data.Products[0]
	p = WildberriesProduct{
		Article:   strconv.FormatInt(cardProduct.ID, 10),
		Name:      cardProduct.Name,
		Price:     cardProduct.SalePriceU / 100,
		Brand:     cardProduct.Brand,
		Rating:    cardProduct.Rating,
		Feedbacks: cardProduct.Feedbacks,
	}
	if cardProduct.ID == 0 || p.Name == "" || p.Price == 0 {
		return WildberriesProduct{}, errors.Wrapf(ErrWildberriesProductNotFound,
			"incomplete product data from WildberriesCardAPI: %+v", cardProduct)
	}

	if useCache && c.Redis != nil {
		if pJSON, err := json.Marshal(p); err != nil {
			c.Logger.Errorf("WildberriesGetProduct: Error marshalling product to cache, key: %s, product: %+v, err: %v",
				cacheKey, p, err)
		} else if err = c.Redis.Set(ctx, cacheKey, pJSON, wildberriesCacheTTL).Err(); err != nil {
			c.Logger.Errorf("WildberriesGetProduct: Error caching product, key: %s, err: %v", cacheKey, err)
		}
	}

	return p, nil
}
