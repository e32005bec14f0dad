// Package rest builds and executes Twitter v1.1 REST API calls.
//
// Endpoints are described as Request values, a (method, path, query) triple
// produced by builder functions such as SearchTweets or UpdateStatus. A
// Client executes them against the API root, signing each call with an
// auth.Requester and decoding the JSON response into typed models.
package rest
