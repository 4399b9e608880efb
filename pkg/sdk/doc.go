// Package sdk is a Go client for the querie HTTP API.
//
// A Client wraps one API endpoint:
//
//	client := sdk.New("http://localhost:8080", sdk.WithAPIKey("secret"))
//	resp, err := client.Search(ctx, "do cows have best friends?")
//
// All methods take a context and return typed responses. API errors carry
// the server's error code and are matchable with errors.As:
//
//	var apiErr *sdk.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == sdk.CodeInvalidQuery {
//		// ask the user to rephrase
//	}
package sdk
