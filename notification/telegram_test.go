package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertRuleBreach(t *testing.T) {
	rule := AlertRule{Above: 70000, Below: 50000}

	assert.Empty(t, rule.breach("bitcoin", 64000))
	assert.Contains(t, rule.breach("bitcoin", 70000), "crossed above")
	assert.Contains(t, rule.breach("bitcoin", 71000), "crossed above")
	assert.Contains(t, rule.breach("bitcoin", 49999.99), "dropped below")

	aboveOnly := AlertRule{Above: 70000}
	assert.Empty(t, aboveOnly.breach("bitcoin", 1))

	belowOnly := AlertRule{Below: 50000}
	assert.Empty(t, belowOnly.breach("bitcoin", 99999999))
	assert.Contains(t, belowOnly.breach("bitcoin", 50000), "dropped below")
}
