package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host: "ch", Port: 9000, Database: "levrecon", User: "u", Password: "p",
		DialTimeout: 5 * time.Second, MaxExecTime: 30 * time.Second,
		AsyncInsert: true, WaitForAsync: true,
	})
	assert.Equal(t, "clickhouse://u:p@ch:9000/levrecon?dial_timeout=5s&max_execution_time=30&async_insert=1&wait_for_async_insert=1", dsn)

	dsn = buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "d", UseHTTP: true})
	assert.Equal(t, "clickhouse+http://:@ch:8123/d", dsn)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithPort(9000))
	assert.Error(t, err)
}
