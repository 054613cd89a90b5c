package linking

import (
	"errors"
	"fmt"
	"net/http"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// CallbackHandler serves the provider redirect on a loopback listener and
// reports the outcome through onResult.
func (l *Linker) CallbackHandler(onResult func(*Account, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue works for both GET query params and POST form data
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid callback", http.StatusBadRequest)
			return
		}

		acct, err := l.complete(r.Context(), r.Form)
		if onResult != nil {
			onResult(acct, err)
		}

		switch {
		case err == nil:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = fmt.Fprintln(w, "Account linked. You can close this window.")
		case errors.Is(err, autherrors.ErrProviderCancelled):
			http.Error(w, "Authorization cancelled", http.StatusBadRequest)
		default:
			http.Error(w, fmt.Sprintf("Linking failed: %v", err), http.StatusBadRequest)
		}
	}
}
