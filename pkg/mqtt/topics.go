package mqtt

import "fmt"

// TopicDisplayContext is the wildcard for display context messages from all hosts
const TopicDisplayContext = "gammad/context/display/+"

// DisplayContextTopic constructs the context topic for a host
// Pattern: gammad/context/display/{host}
func DisplayContextTopic(host string) string {
	return fmt.Sprintf("gammad/context/display/%s", host)
}
