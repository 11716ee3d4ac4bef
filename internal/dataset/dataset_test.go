package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const sampleCSV = `Date,Close,sentiment_label,avg_sentiment,headline_count,rsi,macd,volume_z,target
2024-01-03,102.25,negative,-0.31,4,48.1,-0.4,0.8,0
2024-01-02,101.50,positive,0.42,7,55.2,1.3,1.1,1
2024-01-05,99.10,neutral,0.05,2,,0.2,-0.3,
`

func mustReadCSV(t *testing.T, content string) *Dataset {
	t.Helper()
	ds, err := ReadCSV(context.Background(), "test.csv", strings.NewReader(content))
	if err != nil {
		t.Fatalf("ReadCSV 失败: %v", err)
	}
	return ds
}

func TestReadCSVSortsByDate(t *testing.T) {
	ds := mustReadCSV(t, sampleCSV)

	if ds.Len() != 3 {
		t.Fatalf("期望 3 条记录, 实际 %d", ds.Len())
	}
	records := ds.Records()
	for i := 1; i < len(records); i++ {
		if !records[i-1].Date.Before(records[i].Date) {
			t.Fatalf("记录未按日期升序: %s >= %s", records[i-1].Date, records[i].Date)
		}
	}

	first, last := ds.Range()
	if FormatDate(first) != "2024-01-02" || FormatDate(last) != "2024-01-05" {
		t.Fatalf("日期范围不正确: %s..%s", FormatDate(first), FormatDate(last))
	}
}

func TestReadCSVParsesFields(t *testing.T) {
	ds := mustReadCSV(t, sampleCSV)

	rec, ok := ds.Resolve(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatal("2024-01-02 应存在")
	}
	if rec.Close.StringFixed(2) != "101.50" {
		t.Fatalf("Close 解析错误: %s", rec.Close)
	}
	if rec.SentimentLabel != "positive" {
		t.Fatalf("sentiment_label 解析错误: %q", rec.SentimentLabel)
	}
	if rec.HeadlineCount != 7 {
		t.Fatalf("headline_count 解析错误: %d", rec.HeadlineCount)
	}
	if rec.Target == nil || *rec.Target != 1 {
		t.Fatalf("target 应为 1: %v", rec.Target)
	}
	if len(rec.Extra) != 1 || rec.Extra[0].Name != "volume_z" || rec.Extra[0].Num != 1.1 {
		t.Fatalf("额外列解析错误: %#v", rec.Extra)
	}

	blank, ok := ds.Resolve(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatal("2024-01-05 应存在")
	}
	if !math.IsNaN(blank.RSI) {
		t.Fatalf("空 rsi 应为 NaN, 实际 %v", blank.RSI)
	}
	if blank.Target != nil {
		t.Fatalf("空 target 应为 nil")
	}
}

func TestResolvePresentDates(t *testing.T) {
	ds := mustReadCSV(t, sampleCSV)

	for _, rec := range ds.Records() {
		got, ok := ds.Resolve(rec.Date)
		if !ok {
			t.Fatalf("%s 应能解析", FormatDate(rec.Date))
		}
		if !got.Date.Equal(rec.Date) {
			t.Fatalf("解析日期不一致: %s vs %s", got.Date, rec.Date)
		}
	}
}

func TestResolveIgnoresTimeOfDay(t *testing.T) {
	ds := mustReadCSV(t, sampleCSV)

	if _, ok := ds.Resolve(time.Date(2024, 1, 3, 17, 45, 0, 0, time.UTC)); !ok {
		t.Fatal("同一天的任意时刻都应命中")
	}
}

func TestResolveAbsentDates(t *testing.T) {
	ds := mustReadCSV(t, sampleCSV)

	for _, day := range []string{"2024-01-04", "2023-12-31", "2024-03-15"} {
		d, err := ParseDate(day)
		if err != nil {
			t.Fatalf("ParseDate(%s): %v", day, err)
		}
		if _, ok := ds.Resolve(d); ok {
			t.Fatalf("%s 不应命中", day)
		}
	}
}

func TestReadCSVDuplicateDate(t *testing.T) {
	content := `Date,Close,sentiment_label,avg_sentiment,headline_count,rsi,macd
2024-01-02,1,positive,0.1,1,50,0
2024-01-02 00:00:00,2,negative,0.2,2,51,1
`
	_, err := ReadCSV(context.Background(), "dup.csv", strings.NewReader(content))
	if !errors.Is(err, ErrDuplicateDate) {
		t.Fatalf("重复日期应返回 ErrDuplicateDate, 实际 %v", err)
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	content := "Date,Close,sentiment_label,avg_sentiment,headline_count,rsi\n2024-01-02,1,positive,0.1,1,50\n"
	_, err := ReadCSV(context.Background(), "missing.csv", strings.NewReader(content))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("缺列应返回 ErrMissingColumn, 实际 %v", err)
	}
}

func TestReadCSVEmpty(t *testing.T) {
	content := "Date,Close,sentiment_label,avg_sentiment,headline_count,rsi,macd\n"
	if _, err := ReadCSV(context.Background(), "empty.csv", strings.NewReader(content)); !errors.Is(err, ErrEmpty) {
		t.Fatalf("无数据行应返回 ErrEmpty, 实际 %v", err)
	}
	if _, err := ReadCSV(context.Background(), "blank.csv", strings.NewReader("")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("空文件应返回 ErrEmpty, 实际 %v", err)
	}
}

func TestReadCSVMalformedValue(t *testing.T) {
	content := "Date,Close,sentiment_label,avg_sentiment,headline_count,rsi,macd\n2024-01-02,abc,positive,0.1,1,50,0\n"
	if _, err := ReadCSV(context.Background(), "bad.csv", strings.NewReader(content)); err == nil {
		t.Fatal("非法 Close 应报错")
	}

	content = "Date,Close,sentiment_label,avg_sentiment,headline_count,rsi,macd\n2024-01-02,1,positive,0.1,2.5,50,0\n"
	if _, err := ReadCSV(context.Background(), "bad.csv", strings.NewReader(content)); err == nil {
		t.Fatal("非整数 headline_count 应报错")
	}
}

func TestReadCSVHeaderCaseAndBOM(t *testing.T) {
	content := "\ufeffdate,CLOSE,Sentiment_Label,avg_sentiment,headline_count,RSI,MACD\n2024-01-02,1,Positive,0.1,1,50,0\n"
	ds := mustReadCSV(t, content)
	if ds.Last().SentimentLabel != "positive" {
		t.Fatalf("标签应归一化为小写: %q", ds.Last().SentimentLabel)
	}
}

func TestFeaturesExcludeDateAndTarget(t *testing.T) {
	ds := mustReadCSV(t, sampleCSV)

	for _, rec := range ds.Records() {
		vec := rec.Features()
		for _, name := range vec.Names() {
			if strings.EqualFold(name, ColumnDate) || strings.EqualFold(name, ColumnTarget) {
				t.Fatalf("特征向量不应包含 %s", name)
			}
		}
		if vec.Has(ColumnDate) || vec.Has(ColumnTarget) {
			t.Fatal("特征向量不应包含 Date/target")
		}
		if _, ok := vec.Category(ColumnSentimentLabel); !ok {
			t.Fatal("sentiment_label 应为分类特征")
		}
		if _, ok := vec.Numeric("volume_z"); !ok {
			t.Fatal("额外列应进入特征向量")
		}
		if vec.Len() != 7 {
			t.Fatalf("期望 7 个特征, 实际 %d: %v", vec.Len(), vec.Names())
		}
	}
}

func TestFieldsTransposedOrder(t *testing.T) {
	ds := mustReadCSV(t, sampleCSV)
	rec, _ := ds.Resolve(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	fields := rec.Fields()
	want := []string{"Date", "Close", "sentiment_label", "avg_sentiment", "headline_count", "rsi", "macd", "volume_z", "target"}
	if len(fields) != len(want) {
		t.Fatalf("字段数量不正确: %#v", fields)
	}
	for i, name := range want {
		if fields[i].Name != name {
			t.Fatalf("第 %d 个字段应为 %s, 实际 %s", i, name, fields[i].Name)
		}
	}
	if fields[0].Value != "2024-01-02" || fields[1].Value != "101.50" {
		t.Fatalf("字段值不正确: %#v", fields[:2])
	}
}

func TestNewLoaderInfersSource(t *testing.T) {
	logger := zerolog.Nop()

	l, err := NewLoader(Options{Path: "final_df.parquet"}, logger)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if _, ok := l.(*ParquetLoader); !ok {
		t.Fatalf("应推断为 parquet, 实际 %T", l)
	}

	l, err = NewLoader(Options{Path: "final_df.csv"}, logger)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if _, ok := l.(*CSVLoader); !ok {
		t.Fatalf("应推断为 csv, 实际 %T", l)
	}

	if _, err := NewLoader(Options{Source: "excel", Path: "x.xlsx"}, logger); err == nil {
		t.Fatal("未知来源应报错")
	}
	if _, err := NewLoader(Options{Source: SourceCSV}, logger); err == nil {
		t.Fatal("csv 缺 path 应报错")
	}
}

func TestCSVLoaderMissingFile(t *testing.T) {
	l := NewCSVLoader(filepath.Join(t.TempDir(), "nope.csv"), zerolog.Nop())
	if _, err := l.Load(context.Background()); err == nil {
		t.Fatal("文件不存在应报错")
	}
}

func TestCSVLoaderFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_df.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("写入临时文件失败: %v", err)
	}

	ds, err := NewCSVLoader(path, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Source() != path {
		t.Fatalf("Source 不正确: %s", ds.Source())
	}
	if FormatDate(ds.Last().Date) != "2024-01-05" {
		t.Fatalf("Last 不正确: %s", FormatDate(ds.Last().Date))
	}
}

func TestSelectAllSQLQuotesIdentifier(t *testing.T) {
	if got := selectAllSQL("analytics.final_df"); got != `SELECT * FROM "analytics"."final_df";` {
		t.Fatalf("SQL 不正确: %s", got)
	}
}

func TestNormalizePG(t *testing.T) {
	if v := normalizePG(int32(7)); v != int64(7) {
		t.Fatalf("int32 应转为 int64: %#v", v)
	}
	if v := normalizePG([]byte("positive")); v != "positive" {
		t.Fatalf("[]byte 应转为 string: %#v", v)
	}
	if v := normalizePG(float32(0.5)); v != float64(0.5) {
		t.Fatalf("float32 应转为 float64: %#v", v)
	}
}

func TestParseDateLayouts(t *testing.T) {
	for _, s := range []string{"2024-01-02", "2024-01-02 00:00:00", "2024-01-02T10:00:00Z", "2024/01/02"} {
		d, err := ParseDate(s)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
		if FormatDate(d) != "2024-01-02" {
			t.Fatalf("ParseDate(%q) = %s", s, FormatDate(d))
		}
	}
	if _, err := ParseDate("02.01.2024"); err == nil {
		t.Fatal("未知格式应报错")
	}
}
