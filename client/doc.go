// Package client is a Go client for the Doge48 REST API.
//
//	c := client.New("http://localhost:8080")
//	session, err := c.CreateSession(ctx, "classic")
//	result, err := c.Move(ctx, session.ID, "left")
//
// Non-2xx responses are returned as *APIError.
package client
