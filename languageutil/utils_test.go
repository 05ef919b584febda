package languageutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldKey(t *testing.T) {
	assert.Equal(t, "pants", FoldKey(" PANTS "))
	assert.Equal(t, "tshirt", FoldKey("Ｔ shirt"))
	assert.Equal(t, "上衣", FoldKey("上 衣"))
	assert.Equal(t, "", FoldKey("   "))
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "Blue_Jeans", CollapseSpaces("Blue   Jeans", "_"))
	assert.Equal(t, "a_b", CollapseSpaces(" a\tb ", "_"))
}
