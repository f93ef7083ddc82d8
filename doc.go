// Package xgate 提供面向游戏代理的连接准入、会话登记与数据包防护
//
// xgate 本身不持有任何网络连接。上层代理在握手、登录、收包和断开时
// 调用 Node 的方法，由 Node 给出准入决策或处置结论；
// 需要断开连接时通过 Disconnector 回调或事件总线通知上层。
//
// # 核心组件
//
//   - AdmissionGate: 每周期放行上限、等待队列、单 IP 在途上限、高峰扩容
//   - SessionRegistry: 活跃会话登记、延迟采样、位置更新、结束持久化
//   - PacketGuard: 超大包、崩溃形态、收包频率三类违规检测与踢出
//
// # 快速开始
//
//	node, err := xgate.Start(ctx,
//	    xgate.WithConfigFile("xgate.json"),
//	    xgate.WithDisconnector(pkgif.DisconnectorFunc(proxy.Disconnect)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	// 握手阶段
//	d := node.Admit(types.ConnectionRequest{Identity: id, Address: remote})
//	if !d.Accepted() {
//	    conn.Close(d.Message)
//	}
//
//	// 登录完成
//	node.Register(id, name, remote, device)
//	node.Activate(id)
//
//	// 每个入站数据包
//	if v := node.Inspect(id, kind, len(payload)); !v.IsPass() {
//	    return
//	}
//
// # 文件组织
//
//	xgate/
//	├── doc.go        # 包文档
//	├── xgate.go      # 版本信息
//	├── node.go       # Node 结构、New、Start、Close、对外方法
//	├── options.go    # WithXxx 配置选项
//	├── fx.go         # Fx 组件图
//	└── errors.go     # 错误定义
//
// # 周期任务
//
// 所有周期任务（队列排空、预留释放、延迟采样、违规窗口重置）
// 由同一个调度器驱动，时间来源可通过 WithClock 替换为虚拟时钟。
package xgate
