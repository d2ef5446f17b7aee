package web

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/felipe6san/Fatec-5Sem/stats"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Network holds the training and test data for a model, the state of the current training run
// and the last fitted classifier.
type Network struct {
	Model string
	Conf  nnet.Config
	Train nnet.Data
	Test  nnet.Data
	// Id of the current or last training run.
	RunID string
	Stats []nnet.Stats
	// Exponential moving average of the training loss at each epoch.
	Smoothed []float64
	// Fitted network and its test set predictions from the last completed run.
	Net     *nnet.Network
	Pred    []int
	Err     error
	running bool
	stop    bool
	done    chan struct{}
	conns   map[*websocket.Conn]bool
	connMu  sync.Mutex
	sync.Mutex
}

// Update is sent to websocket clients at the end of each epoch and when a run finishes.
type Update struct {
	RunID   string      `json:"run_id"`
	Model   string      `json:"model"`
	Running bool        `json:"running"`
	MaxIter int         `json:"max_iter"`
	Stats   *nnet.Stats `json:"stats,omitempty"`
	// Smoothed training loss at the latest epoch.
	Smoothed float64 `json:"smoothed_loss,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Number of epochs in the moving average of the loss.
const smoothEpochs = 10

// Create a new network for the model with data already loaded.
func NewNetwork(model string, conf nnet.Config, train, test nnet.Data) *Network {
	conf.Verbose = false
	return &Network{
		Model: model,
		Conf:  conf,
		Train: train,
		Test:  test,
		conns: make(map[*websocket.Conn]bool),
	}
}

// Start a new training run in the background, the network must be locked by the caller.
func (n *Network) Start() error {
	if n.running {
		return errors.New("training is already running")
	}
	net, err := nnet.New(n.Conf)
	if err != nil {
		return err
	}
	net.Out = log.Writer()
	n.RunID = uuid.NewString()
	n.Stats, n.Smoothed = nil, nil
	n.Err = nil
	n.running, n.stop = true, false
	n.done = make(chan struct{})
	log.Printf("train %s: run %s hidden=%v", n.Model, n.RunID, n.Conf.Hidden)
	go n.run(net, n.RunID, n.done)
	return nil
}

func (n *Network) run(net *nnet.Network, runID string, done chan struct{}) {
	defer close(done)
	err := net.Train(context.Background(), n.Train, n)
	var pred []int
	if err == nil {
		pred, err = net.Predict(n.Test.Matrix())
	}
	n.Lock()
	n.running = false
	n.Err = err
	if err == nil {
		n.Net, n.Pred = net, pred
		acc, _ := stats.Accuracy(n.Test.Labels, pred)
		log.Printf("train %s: run %s done after %d iterations, loss=%.6f accuracy=%.4f", n.Model, runID, net.Iterations, net.Loss, acc)
	} else {
		log.Printf("train %s: run %s failed: %s", n.Model, runID, err)
	}
	update := n.update()
	n.Unlock()
	n.broadcast(update)
}

// Stop asks the current run to finish at the end of the epoch, the network must be locked by
// the caller.
func (n *Network) Stop() {
	if n.running {
		n.stop = true
	}
}

// Running reports whether a training run is in progress, the network must be locked by the caller.
func (n *Network) Running() bool { return n.running }

// Wait blocks until the current run has finished.
func (n *Network) Wait() {
	n.Lock()
	done := n.done
	n.Unlock()
	if done != nil {
		<-done
	}
}

// Test is called by the trainer at the end of each epoch, it records the stats, notifies any
// websocket clients and returns true if a stop was requested.
func (n *Network) Test(net *nnet.Network, s nnet.Stats) bool {
	n.Lock()
	n.Stats = append(n.Stats, s)
	var ema stats.EMA
	if len(n.Smoothed) > 0 {
		ema = stats.EMA(n.Smoothed[len(n.Smoothed)-1])
	}
	n.Smoothed = append(n.Smoothed, ema.Add(s.Loss, smoothEpochs))
	update := n.update()
	stop := n.stop
	n.Unlock()
	n.broadcast(update)
	return stop
}

// current status, the network must be locked
func (n *Network) update() Update {
	u := Update{RunID: n.RunID, Model: n.Model, Running: n.running, MaxIter: n.Conf.MaxIter}
	if len(n.Stats) > 0 {
		s := n.Stats[len(n.Stats)-1]
		u.Stats = &s
		u.Smoothed = n.Smoothed[len(n.Smoothed)-1]
	}
	if n.Err != nil {
		u.Error = n.Err.Error()
	}
	return u
}

// Confusion matrix of the test set predictions from the last completed run.
func (n *Network) Confusion() (*stats.Confusion, error) {
	if n.Net == nil {
		return nil, nnet.ErrNotFitted
	}
	return stats.ConfusionMatrix(n.Test.Labels, n.Pred, n.Net.Classes)
}

// register a websocket client and send it the current status
func (n *Network) addConn(conn *websocket.Conn) {
	n.Lock()
	update := n.update()
	n.Unlock()
	n.connMu.Lock()
	n.conns[conn] = true
	n.connMu.Unlock()
	n.send(conn, update)
}

func (n *Network) removeConn(conn *websocket.Conn) {
	n.connMu.Lock()
	delete(n.conns, conn)
	n.connMu.Unlock()
	conn.Close()
}

func (n *Network) broadcast(update Update) {
	n.connMu.Lock()
	conns := make([]*websocket.Conn, 0, len(n.conns))
	for conn := range n.conns {
		conns = append(conns, conn)
	}
	n.connMu.Unlock()
	for _, conn := range conns {
		n.send(conn, update)
	}
}

func (n *Network) send(conn *websocket.Conn, update Update) {
	n.connMu.Lock()
	defer n.connMu.Unlock()
	if !n.conns[conn] {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(update); err != nil {
		log.Println("error writing to websocket:", err)
		delete(n.conns, conn)
		conn.Close()
	}
}
