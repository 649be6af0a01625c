package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("ops", RoleAdmin, "s3cret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ops", claims["sub"])
	assert.Equal(t, RoleAdmin, claims["role"])

	_, err = ValidateJWT(token, "other")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTExpired(t *testing.T) {
	token, err := GenerateJWT("ops", RoleAdmin, "s3cret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(token, "s3cret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestGenerateJWTRequiresSecret(t *testing.T) {
	_, err := GenerateJWT("ops", RoleAdmin, "", time.Hour)
	assert.Error(t, err)
}

func TestParseDrawsCSVKoreanHeaders(t *testing.T) {
	in := "\ufeff회차,추첨일,번호1,번호2,번호3,번호4,번호5,번호6,보너스\n" +
		"1,2002.12.07,10,23,29,33,37,40,16\n" +
		"2,2002.12.14,9,13,21,25,32,42,2\n"

	res, err := ParseDrawsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalRows)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Draws, 2)
	assert.Equal(t, 1, res.Draws[0].DrawNo)
	assert.Equal(t, "2002-12-07", res.Draws[0].DrawDate)
	assert.Equal(t, []int{10, 23, 29, 33, 37, 40}, res.Draws[0].Numbers)
	assert.Equal(t, 16, res.Draws[0].Bonus)
}

func TestParseDrawsCSVJoinedNumbers(t *testing.T) {
	in := "Round,Date,Numbers,Bonus\n" +
		"1205,2023-12-30,\"41 31 23 16 4 1\",2\n" +
		"1206,2024-01-06,\"1, 3, 8, 12, 42, 43\",33\n"

	res, err := ParseDrawsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Draws, 2)
	assert.Equal(t, []int{1, 4, 16, 23, 31, 41}, res.Draws[0].Numbers)
	assert.Equal(t, 2, res.Draws[0].Bonus)
	assert.Equal(t, 1206, res.Draws[1].DrawNo)
}

func TestParseDrawsCSVPositionalFallback(t *testing.T) {
	in := "a,b,c,d,e,f,g,h,i\n" +
		"3,2002-12-21,11,16,19,21,27,31,30\n"

	res, err := ParseDrawsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Draws, 1)
	assert.Equal(t, 3, res.Draws[0].DrawNo)
	assert.Equal(t, 30, res.Draws[0].Bonus)
}

func TestParseDrawsCSVReportsBadRows(t *testing.T) {
	in := "draw_no,draw_date,n1,n2,n3,n4,n5,n6,bonus\n" +
		"1,2002-12-07,10,23,29,33,37,40,16\n" +
		",,,,,,,,\n" +
		"2,not-a-date,9,13,21,25,32,42,2\n" +
		"3,2002-12-21,11,11,19,21,27,31,30\n" +
		"4.0,2002-12-28,14,27,30,31,40,42,2\n"

	res, err := ParseDrawsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalRows)
	assert.Equal(t, 3, res.Skipped)
	assert.Len(t, res.Errors, 2)
	require.Len(t, res.Draws, 2)
	assert.Equal(t, 4, res.Draws[1].DrawNo)
}

func TestParseDrawsCSVRejectsUnusableHeader(t *testing.T) {
	_, err := ParseDrawsCSV(strings.NewReader("draw,date\n1,2002-12-07\n"))
	assert.Error(t, err)

	_, err = ParseDrawsCSV(strings.NewReader(""))
	assert.Error(t, err)
}
