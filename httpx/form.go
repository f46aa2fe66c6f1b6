package httpx

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ajg/form"
)

// maxFormItems bounds list indices such as questions[499][text].
const maxFormItems = 500

var bracketKey = regexp.MustCompile(`\[([^\]]*)\]`)

// DecodeForm parses the request's form body into dst. Browser style keys
// such as "questions[0][text]" address nested structs and slices through
// `form` struct tags. Keys with no matching field are ignored.
func DecodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	return DecodeValues(r.PostForm, dst)
}

func DecodeValues(vs url.Values, dst any) error {
	dotted := make(url.Values, len(vs))
	for key, values := range vs {
		key = strings.TrimSuffix(bracketKey.ReplaceAllString(key, ".$1"), ".")
		if err := checkIndices(key); err != nil {
			return err
		}
		dotted[key] = append(dotted[key], values...)
	}

	dec := form.NewDecoder(nil)
	dec.IgnoreUnknownKeys(true)
	if err := dec.DecodeValues(dst, dotted); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}

// checkIndices rejects list indices the decoder would have to allocate for.
func checkIndices(key string) error {
	for _, segment := range strings.Split(key, ".") {
		if strings.TrimLeft(segment, "-0123456789") != "" || strings.Trim(segment, "-") == "" {
			continue
		}
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= maxFormItems {
			return fmt.Errorf("decode form: index %q of %q out of range", segment, key)
		}
	}
	return nil
}

// Checkbox reports whether a checkbox value means checked.
func Checkbox(value string) bool {
	switch strings.ToLower(value) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
