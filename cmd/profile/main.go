package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"clob-engine/config"
	"clob-engine/domain"
	"clob-engine/pipeline"
	"clob-engine/workload"
)

func main() {
	// 创建 CPU profile 文件
	cpuFile, err := os.Create("cpu.prof")
	if err != nil {
		panic(err)
	}
	defer cpuFile.Close()

	// 启动 CPU profiling
	pprof.StartCPUProfile(cpuFile)
	defer pprof.StopCPUProfile()

	fmt.Println("=== 性能分析开始 ===")
	fmt.Println("生成 CPU profile: cpu.prof")

	cfg := config.Default()
	core, err := pipeline.New(cfg, nil)
	if err != nil {
		panic(err)
	}
	core.AddSymbol(&domain.CoreSymbolSpecification{
		SymbolID: 1, Type: domain.CurrencyExchangePair,
		BaseCurrency: 1, QuoteCurrency: 2, BaseScaleK: 1, QuoteScaleK: 1,
	})
	core.Start()
	defer core.Stop()

	stats := workload.Run(core, 1, 10*time.Second)

	fmt.Println("\n=== 性能测试结果 ===")
	fmt.Printf("总订单数: %d\n", stats.Orders)
	fmt.Printf("总成交数: %d\n", stats.Trades)
	fmt.Printf("Order QPS: %.0f orders/sec\n", stats.OrdersPerS)

	fmt.Println("\n分析 CPU profile:")
	fmt.Println("  go tool pprof -http=:8080 cpu.prof")
	fmt.Println("  或者: go tool pprof cpu.prof")
	fmt.Println("  然后输入: top10  (查看前 10 个热点函数)")
	fmt.Println("  然后输入: list <函数名>  (查看具体代码)")
}
