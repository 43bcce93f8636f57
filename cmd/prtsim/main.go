package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/p-org/prt-go/process"
	"github.com/p-org/prt-go/scheduler"
	"github.com/p-org/prt-go/util/testutil"
	"github.com/p-org/prt-go/value"
)

func main() {
	var (
		verbose     = flag.Bool("v", false, "log every dispatch event")
		wsPort      = flag.String("ws", "", "websocket control port, e.g. :8123 (empty disables)")
		mqttBroker  = flag.String("mqtt", "", "mqtt broker URL, e.g. tcp://localhost:1883 (empty disables)")
		cronExpr    = flag.String("cron", "", "cron expression driving a TICK event into machine A (empty disables)")
		checkpoint  = flag.String("checkpoint", "", "bolt checkpoint file path (empty disables)")
		docsOut     = flag.String("docs", "", "render the loaded program to this HTML file and exit")
		cooperative = flag.Bool("cooperative", false, "use the cooperative scheduling policy instead of task-neutral")
	)
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.LUTC)

	prog := demoProgram()
	if err := process.Initialize(prog); err != nil {
		log.Fatalf("prtsim: Initialize: %v", err)
	}

	if *docsOut != "" {
		if err := renderDocs(prog, *docsOut); err != nil {
			log.Fatalf("prtsim: renderDocs: %v", err)
		}
		fmt.Printf("wrote %s\n", *docsOut)
		return
	}

	var bridge *mqttBridge // assigned below once -mqtt is wired; logFun closes over the pointer

	errorFun := func(pr *process.Process, err error, snap process.MachineSnapshot) {
		log.Printf("error machine=%s state=%s: %v", snap.MachineID, snap.StateName, err)
	}
	logFun := func(op string, payload value.Value, pr *process.Process, snap process.MachineSnapshot) {
		if *verbose {
			log.Printf("%s machine=%s state=%s payload=%s", op, snap.MachineID, snap.StateName, testutil.JS(payload))
		}
		if bridge != nil && op == "send" {
			bridge.publish(fmt.Sprintf("%s %s %v", snap.MachineID, snap.StateName, payload))
		}
	}

	pr, err := process.StartProcess("prtsim-1", prog, errorFun, logFun)
	if err != nil {
		log.Fatalf("prtsim: StartProcess: %v", err)
	}
	if *cooperative {
		pr.SetSchedulingPolicy(scheduler.Cooperative)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// B must exist before A, since A's entry function (run
	// synchronously inside this MkMachine call) immediately sends
	// PING to B; demo.go's handlers hardcode B at index 0, A at
	// index 1 to match this order.
	if _, err := pr.MkMachine(ctx, "B", nil); err != nil {
		log.Fatalf("prtsim: MkMachine B: %v", err)
	}
	if _, err := pr.MkMachine(ctx, "A", nil); err != nil {
		log.Fatalf("prtsim: MkMachine A: %v", err)
	}

	if *checkpoint != "" {
		cp, err := newCheckpointer(*checkpoint, pr)
		if err != nil {
			log.Fatalf("prtsim: checkpoint: %v", err)
		}
		defer cp.Close()
		go cp.Run(ctx)
	}

	if *mqttBroker != "" {
		b, err := newMQTTBridge(*mqttBroker, pr)
		if err != nil {
			log.Fatalf("prtsim: mqtt: %v", err)
		}
		bridge = b
		defer bridge.Close()
	}

	if *wsPort != "" {
		srv := newWebSocketServer(pr)
		go func() {
			if err := srv.ListenAndServe(*wsPort); err != nil {
				log.Printf("prtsim: websocket server: %v", err)
			}
		}()
	}

	if *cronExpr != "" {
		tk, err := newCronTicker(*cronExpr, pr)
		if err != nil {
			log.Fatalf("prtsim: cron: %v", err)
		}
		defer tk.Stop()
	}

	go func() {
		if err := pr.RunProcess(ctx); err != nil {
			log.Printf("prtsim: RunProcess: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	<-sigs

	log.Printf("prtsim: shutting down")
	if err := pr.StopProcess(context.Background()); err != nil {
		log.Printf("prtsim: StopProcess: %v", err)
	}
}
