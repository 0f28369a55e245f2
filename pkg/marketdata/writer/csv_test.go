package writer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/tidemill-labs/backtrack/internal/types"
)

type CSVWriterTestSuite struct {
	suite.Suite
}

func TestCSVWriterSuite(t *testing.T) {
	suite.Run(t, new(CSVWriterTestSuite))
}

func testBar(d int, close float64) types.Bar {
	return types.Bar{
		Time:     time.Date(2024, time.May, d, 0, 0, 0, 0, time.UTC),
		Symbol:   "SPY",
		Open:     close - 0.5,
		High:     close + 1,
		Low:      close - 1,
		Close:    close,
		AdjClose: close,
		Volume:   5000,
	}
}

func (suite *CSVWriterTestSuite) TestWriteAndFinalize() {
	path := filepath.Join(suite.T().TempDir(), "SPY.csv")

	w := NewCSVWriter(path)
	suite.Equal(path, w.GetOutputPath())

	suite.Require().NoError(w.Initialize())
	defer w.Close()

	// Insert out of order; the export is sorted by date.
	suite.Require().NoError(w.Write(testBar(2, 101)))
	suite.Require().NoError(w.Write(testBar(1, 100)))

	out, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Equal(path, out)

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	suite.Require().Len(lines, 3)
	suite.Equal("Date,Open,High,Low,Close,Adj Close,Volume", lines[0])
	suite.True(strings.HasPrefix(lines[1], "2024-05-01,"))
	suite.True(strings.HasPrefix(lines[2], "2024-05-02,"))
}

func (suite *CSVWriterTestSuite) TestWriteBeforeInitialize() {
	w := NewCSVWriter(filepath.Join(suite.T().TempDir(), "SPY.csv"))
	suite.Error(w.Write(testBar(1, 100)))
}

func (suite *CSVWriterTestSuite) TestFinalizeBeforeInitialize() {
	w := NewCSVWriter(filepath.Join(suite.T().TempDir(), "SPY.csv"))
	_, err := w.Finalize()
	suite.Error(err)
}
