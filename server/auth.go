package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/zenazn/goji/web"

	"github.com/isoterra/sculpt/sculpt"
)

// authConfig holds the secret used to sign tokens and the optional file of user
// privileges.  Authentication is off when SecretKey is empty.
type authConfig struct {
	AuthFile  string `toml:"auth_file"`
	SecretKey string `toml:"secret_key"`
}

// authorizer validates bearer tokens against a secret and a privilege list.
type authorizer struct {
	secret []byte
	users  map[string]string // user -> read, write or readwrite; "*" matches anyone
}

func newAuthorizer(ac authConfig) (*authorizer, error) {
	if ac.SecretKey == "" {
		return nil, nil
	}
	a := &authorizer{secret: []byte(ac.SecretKey)}
	if err := a.loadAuthFile(ac.AuthFile); err != nil {
		return nil, fmt.Errorf("can't load auth file %q: %v", ac.AuthFile, err)
	}
	return a, nil
}

// GenerateJWT returns a token naming the user, signed with the secret key.
func GenerateJWT(user, secretKey string) (string, error) {
	if secretKey == "" {
		return "", sculpt.NewConfigError("auth", "no secret key for signing tokens")
	}
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["user"] = user

	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("error with JWT signing: %v", err)
	}
	return tokenString, nil
}

// isAuthorized is middleware that validates a JWT and sets the c.Env["user"] field
// to the authenticated user.
func (a *authorizer) isAuthorized(c *web.C, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		reqToken := r.Header.Get("Authorization")
		if len(reqToken) == 0 {
			Unauthorized(w, r, "JWT required via Authorization in request header")
			return
		}
		splitToken := strings.Split(reqToken, "Bearer")
		if len(splitToken) != 2 {
			Unauthorized(w, r, "bearer not in proper format")
			return
		}
		reqToken = strings.TrimSpace(splitToken[1])
		if len(reqToken) == 0 {
			Unauthorized(w, r, "requests require JWT authentication")
			return
		}
		token, err := jwt.Parse(reqToken, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("error signing method: %v", token.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil {
			Unauthorized(w, r, "error parsing JWT: %v", err)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			Unauthorized(w, r, "failed authorization")
			return
		}
		user, ok := claims["user"].(string)
		if !ok {
			Unauthorized(w, r, "user %v is not a simple string", claims["user"])
			return
		}
		if !a.permits(user, r.Method) {
			Forbidden(w, r, "user %q is not authorized", user)
			return
		}
		if c.Env == nil {
			c.Env = make(map[interface{}]interface{})
		}
		c.Env["user"] = user
		h.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

func (a *authorizer) loadAuthFile(filename string) error {
	if len(filename) == 0 {
		sculpt.Infof("No authorization file found.  Any user with a valid token has full access.\n")
		return nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &a.users)
}

// permits returns true if the user's privilege allows the HTTP method.  Without a
// privilege list every signed user may read and write.
func (a *authorizer) permits(user string, httpMethod string) bool {
	if a.users == nil {
		return true
	}
	method := strings.ToLower(httpMethod)
	readReq := method == "get" || method == "head"
	priv, found := a.users[user]
	if !found {
		priv, found = a.users["*"]
		if !found {
			return false
		}
	}
	switch priv {
	case "readwrite":
		return true
	case "read":
		return readReq
	case "write":
		return !readReq
	default:
		sculpt.Errorf("Authorized user %q has unparsable privilege %q\n", user, priv)
		return false
	}
}
