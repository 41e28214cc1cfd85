package runtime

import "strings"

// methodVerbs maps HTTP methods to the audit verb used in operation types.
var methodVerbs = map[string]string{
	"GET":    "READ",
	"POST":   "CREATE",
	"PUT":    "UPDATE",
	"PATCH":  "PARTIAL_UPDATE",
	"DELETE": "DELETE",
}

// OperationTypeForMethod derives an operation type for HTTP adapters from the
// request method and a handler or resource name. "POST" and "user" become
// "CREATE_USER"; unknown methods fall back to the upper-cased method itself.
func OperationTypeForMethod(method, name string) string {
	verb, ok := methodVerbs[strings.ToUpper(method)]
	if !ok {
		verb = strings.ToUpper(method)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return verb
	}
	return verb + "_" + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}
