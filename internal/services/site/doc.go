// Package site serves the public storefront: the home page, the product
// listing, the team page and the order form.
//
// Product and team photos go through an ImageTracker, which keeps one
// retrying loader per image locator so repeated page views share fetch state.
// Every request renders through its own Page, whose viewport covers the
// requested listing page. Pages wait a bounded time for their near images
// before rendering, and anything still pending renders as a skeleton. A
// failed image is tried again by the first page view after DefaultFailedTTL.
package site
