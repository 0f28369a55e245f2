package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/tidemill-labs/backtrack/internal/logger"
)

const sampleCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-03-01,100.0,102.0,99.0,101.0,101.0,10000
2024-03-04,101.5,103.0,100.5,102.5,102.5,12000
2024-03-05,102.0,104.0,101.0,103.0,103.0,9000
`

type LoaderTestSuite struct {
	suite.Suite
	log *logger.Logger
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderTestSuite))
}

func (suite *LoaderTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.log = log
}

func (suite *LoaderTestSuite) writeCSV(name string, content string) string {
	path := filepath.Join(suite.T().TempDir(), name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func (suite *LoaderTestSuite) TestLoadCSVFile() {
	path := suite.writeCSV("spy.csv", sampleCSV)

	series, err := LoadCSVFile(path, suite.log)
	suite.Require().NoError(err)

	suite.Equal("SPY", series.Symbol)
	suite.Require().Equal(3, series.Len())

	first := series.At(0)
	suite.Equal("SPY", first.Symbol)
	suite.InDelta(100.0, first.Open, 1e-9)
	suite.InDelta(101.0, first.Close, 1e-9)
	suite.InDelta(101.0, first.AdjClose, 1e-9)
	suite.InDelta(10000.0, first.Volume, 1e-9)
	suite.Equal(day(1), first.Time)
	suite.Equal(day(5), series.At(2).Time)
}

func (suite *LoaderTestSuite) TestLoadCSVFileMissingFile() {
	_, err := LoadCSVFile(filepath.Join(suite.T().TempDir(), "missing.csv"), suite.log)
	suite.Require().Error(err)
}

func (suite *LoaderTestSuite) TestLoadCSVGlob() {
	dir := suite.T().TempDir()
	suite.Require().NoError(os.WriteFile(filepath.Join(dir, "aapl.csv"), []byte(sampleCSV), 0644))
	suite.Require().NoError(os.WriteFile(filepath.Join(dir, "msft.csv"), []byte(sampleCSV), 0644))

	seriesList, err := LoadCSVGlob(filepath.Join(dir, "*.csv"), suite.log)
	suite.Require().NoError(err)
	suite.Len(seriesList, 2)
}

func (suite *LoaderTestSuite) TestLoadCSVGlobNoMatches() {
	_, err := LoadCSVGlob(filepath.Join(suite.T().TempDir(), "*.csv"), suite.log)
	suite.Require().Error(err)
}
