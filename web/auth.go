package web

import (
	"crypto/subtle"
	"log"
	"net/http"
	"time"

	"github.com/goji/httpauth"
	"github.com/gorilla/securecookie"
)

const (
	defaultCookie = "mlp-session"
	sessionUser   = "user"
)

// AuthMiddleware checks requests for a signed session cookie and falls back to basic auth
// against the configured user, a successful login sets the cookie.
type AuthMiddleware struct {
	name   string
	maxAge time.Duration
	secure bool
	codec  *securecookie.SecureCookie
	login  func(http.Handler) http.Handler
}

// Setup new middleware for the user, password and cookie options in the settings.
func NewAuthMiddleware(s Settings) *AuthMiddleware {
	mw := &AuthMiddleware{name: s.Cookie, maxAge: s.CookieMaxAge, secure: s.SecureCookie}
	if mw.name == "" {
		mw.name = defaultCookie
	}
	mw.codec = securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	if mw.maxAge > 0 {
		mw.codec.MaxAge(int(mw.maxAge / time.Second))
	}
	mw.login = httpauth.BasicAuth(httpauth.AuthOptions{
		Realm:    "mlp " + s.Model,
		AuthFunc: checkPassword(s.User, s.Password),
	})
	return mw
}

func (mw *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	withCookie := mw.login(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		mw.startSession(w, user)
		next.ServeHTTP(w, r)
	}))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mw.session(r) != "" {
			next.ServeHTTP(w, r)
			return
		}
		withCookie.ServeHTTP(w, r)
	})
}

// user name from a valid session cookie or "" if there is none
func (mw *AuthMiddleware) session(r *http.Request) string {
	cookie, err := r.Cookie(mw.name)
	if err != nil {
		return ""
	}
	values := map[string]string{}
	if err = mw.codec.Decode(mw.name, cookie.Value, &values); err != nil {
		return ""
	}
	return values[sessionUser]
}

func (mw *AuthMiddleware) startSession(w http.ResponseWriter, user string) {
	encoded, err := mw.codec.Encode(mw.name, map[string]string{sessionUser: user})
	if err != nil {
		log.Println("session cookie:", err)
		return
	}
	cookie := &http.Cookie{
		Name:     mw.name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   mw.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if mw.maxAge > 0 {
		cookie.MaxAge = int(mw.maxAge / time.Second)
	}
	http.SetCookie(w, cookie)
}

func checkPassword(user, password string) func(string, string, *http.Request) bool {
	return func(u, p string, r *http.Request) bool {
		ok := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1 &&
			subtle.ConstantTimeCompare([]byte(p), []byte(password)) == 1
		if !ok {
			log.Printf("login failed for %q from %s", u, r.RemoteAddr)
		}
		return ok
	}
}
