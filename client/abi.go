package client

// ABI fragments for the three L1 contracts the finalizer talks to.
// Full bindings generated via cmd/abigen aren't needed here; these are
// the minimal hand-written fragments needed to build bind.BoundContract
// calls for the methods the finalizer actually invokes.

const withdrawalFinalizerABI = `[
  {
    "type": "function",
    "name": "finalizeWithdrawals",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "_requests",
        "type": "tuple[]",
        "components": [
          {"name": "l1BatchNumber", "type": "uint256"},
          {"name": "l2MessageIndex", "type": "uint256"},
          {"name": "l2TxNumberInBlock", "type": "uint256"},
          {"name": "message", "type": "bytes"},
          {"name": "merkleProof", "type": "bytes32[]"},
          {"name": "isEth", "type": "bool"},
          {"name": "gasLimit", "type": "uint256"}
        ]
      }
    ],
    "outputs": [
      {
        "name": "results",
        "type": "tuple[]",
        "components": [
          {"name": "success", "type": "bool"},
          {"name": "gas", "type": "uint256"}
        ]
      }
    ]
  }
]`

const zkSyncRollupABI = `[
  {
    "type": "function",
    "name": "isEthWithdrawalFinalized",
    "stateMutability": "view",
    "inputs": [
      {"name": "l1BatchNumber", "type": "uint256"},
      {"name": "l2MessageIndex", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "bool"}]
  }
]`

const l1BridgeABI = `[
  {
    "type": "function",
    "name": "isWithdrawalFinalized",
    "stateMutability": "view",
    "inputs": [
      {"name": "l1BatchNumber", "type": "uint256"},
      {"name": "l2MessageIndex", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "bool"}]
  }
]`
