// Package http exposes the published scrape snapshot over a read-only
// JSON API. The server never talks to the exchange: it only serves
// whatever the last run left under the results directory.
package http
