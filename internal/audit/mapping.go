package audit

import "strings"

// methodActions names the audited RPCs whose action does not follow the leading verb.
var methodActions = map[string]string{
	"ClearAll": "clear_all",
}

var verbs = []string{"Create", "Stop", "Delete", "Submit", "Get", "List"}

// ActionFor derives the audit action and resource from a gRPC full method name:
// /attendance.session.v1.SessionService/StopSession is ("stop", "session").
func ActionFor(fullMethod string) (action, resource string) {
	service, method, ok := strings.Cut(strings.TrimPrefix(fullMethod, "/"), "/")
	if !ok || method == "" {
		return "unknown", "unknown"
	}
	return methodAction(method), serviceResource(service)
}

func methodAction(method string) string {
	if a, ok := methodActions[method]; ok {
		return a
	}
	for _, v := range verbs {
		if len(method) > len(v) && strings.HasPrefix(method, v) {
			return strings.ToLower(v)
		}
	}
	return strings.ToLower(method)
}

// serviceResource turns attendance.session.v1.SessionService into "session".
func serviceResource(service string) string {
	dot := strings.LastIndexByte(service, '.')
	if dot < 0 {
		return "unknown"
	}
	name := strings.TrimSuffix(service[dot+1:], "Service")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(name[:1]) + name[1:]
}
